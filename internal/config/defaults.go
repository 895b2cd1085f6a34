package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultRunnerPath is the runner binary, resolved through PATH
	DefaultRunnerPath = "prompt-runner"
	// DefaultTransport spawns the runner locally
	DefaultTransport = TransportProcess
	// DefaultDelimiter terminates protocol envelopes
	DefaultDelimiter = "<END_MSG>"
	// DefaultCancelTimeout bounds how long a cancel waits for the run to close
	DefaultCancelTimeout = 5 * time.Second
	// DefaultCancelPollInterval is how often a cancel checks the run handle
	DefaultCancelPollInterval = 100 * time.Millisecond
	// DefaultExitGrace bounds how long protocol sockets may drain after the runner exits
	DefaultExitGrace = 2 * time.Second
	// DefaultStateDir holds the project config file and run history
	DefaultStateDir = ".ptrun"
	// DefaultConfigFile is the project config file name inside DefaultStateDir
	DefaultConfigFile = "config.yaml"
	// DefaultOutputJSONFile is the run history file name
	DefaultOutputJSONFile = "test-runs.json"
	// DefaultHistoryLimit is how many runs the JSON store keeps
	DefaultHistoryLimit = 20
	// DefaultStorageDriver keeps history in a JSON file
	DefaultStorageDriver = StorageJSON
	// DefaultDatabaseName is the MySQL database used for run history
	DefaultDatabaseName = "ptrun"
	// DefaultServeAddr is where the editor bridge listens
	DefaultServeAddr = "127.0.0.1:4510"
	// DefaultLogLevel for diagnostics
	DefaultLogLevel = "info"
)

// DefaultSourceExtensions are the files sent along with a streamed run
var DefaultSourceExtensions = []string{".prompt"}

// DefaultPathsToIgnore are the default directories to ignore when collecting project files
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"dist",
	"build",
	DefaultStateDir,
}

// DefaultAllowedOrigins are the webview origins the bridge accepts
var DefaultAllowedOrigins = []string{
	"vscode-webview://*",
	"http://localhost:*",
	"http://127.0.0.1:*",
}
