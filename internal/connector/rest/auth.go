package rest

import (
	"encoding/base64"
	"net/http"

	"dataport/internal/connector"
)

const defaultAPIKeyHeader = "X-API-Key"

// applyAuth injects the credentials of auth as request headers.
func applyAuth(req *http.Request, auth connector.AuthConfig) {
	switch auth.Type {
	case connector.AuthBasic:
		if auth.Username == "" && auth.Password == "" {
			return
		}
		credentials := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		req.Header.Set("Authorization", "Basic "+credentials)
	case connector.AuthBearer:
		if auth.Token == "" {
			return
		}
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case connector.AuthAPIKey:
		if auth.APIKey == "" {
			return
		}
		header := auth.HeaderName
		if header == "" {
			header = defaultAPIKeyHeader
		}
		req.Header.Set(header, auth.APIKey)
	}
}
