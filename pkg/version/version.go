package version

// Version is the current version of the call monitor
const Version = "0.3.0"

// UserAgent returns the User-Agent string for outbound HTTP requests
func UserAgent() string {
	return "callmonitor/" + Version
}

// ServerHeader returns the Server header value for HTTP responses
func ServerHeader() string {
	return "callmonitor/" + Version
}
