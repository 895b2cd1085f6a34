package cli

import "ptrun/internal/config"

// Flags holds command-line flags
type Flags struct {
	Project     string
	Tests       []string
	Functions   []string
	RequestFile string
	All         bool
	NameFilter  string
	Transport   string
	Endpoint    string
	RunnerPath  string
	NoProgress  bool
	Plain       bool
	Limit       int
	ServeAddr   string
	LogLevel    string
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Tests:       f.Tests,
		Functions:   f.Functions,
		RequestFile: f.RequestFile,
		All:         f.All,
		NameFilter:  f.NameFilter,
		Transport:   f.Transport,
		Endpoint:    f.Endpoint,
		RunnerPath:  f.RunnerPath,
		NoProgress:  f.NoProgress,
		Plain:       f.Plain,
		Limit:       f.Limit,
		ServeAddr:   f.ServeAddr,
	}
}
