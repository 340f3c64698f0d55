package httpapi

// maxBodyBytes caps request bodies. Image uploads dominate, so the default
// is much larger than a JSON payload needs.
var maxBodyBytes int64 = 32 << 20

// maxJSONBytes caps JSON command bodies.
const maxJSONBytes = 64 << 10

// SetMaxBodyBytes allows configuring the maximum upload size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 32 << 20
		return
	}
	maxBodyBytes = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
