package runstate

// Code wraps an exit code for SetExitCode
func Code(n int) *int { return &n }
