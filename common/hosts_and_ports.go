package common

import (
	"fmt"
	"os"
	"strconv"
)

const defaultAPIBase = "http://localhost:3001"

// GetAPIBase returns the base URL of the AnythingLLM backend. Can be
// overridden by setting the SMITH_API_BASE environment variable.
func GetAPIBase() string {
	apiBase := os.Getenv("SMITH_API_BASE")
	if apiBase == "" {
		return defaultAPIBase
	}
	return apiBase
}

const defaultHTTPPort = 8081

// GetHTTPPort returns the port the generated application is expected to
// serve on while its tests run.
func GetHTTPPort() int {
	port := os.Getenv("SMITH_HTTP_PORT")
	if port == "" {
		return defaultHTTPPort
	}

	intPort, err := strconv.Atoi(port)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse appsmith http port: %s", port))
	}
	return intPort
}

const defaultWorkspace = "development"

// GetWorkspace returns the default workspace slug used for backend requests.
func GetWorkspace() string {
	workspace := os.Getenv("SMITH_WORKSPACE")
	if workspace == "" {
		return defaultWorkspace
	}
	return workspace
}
