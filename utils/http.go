// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the identity client and the profile sync worker.
var HTTPClient = &http.Client{
	Timeout: 10 * time.Second,
}
