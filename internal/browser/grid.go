package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"elpais-crawler/internal/config"
	"elpais-crawler/pkg/types"
)

// Capabilities builds the capability set sent to the remote grid. Empty
// values are omitted so the grid applies its own defaults.
func Capabilities(remote config.RemoteConfig, runID string) map[string]string {
	build := remote.Build
	if build == "" {
		build = runID
	}
	caps := map[string]string{
		"browser":                "chrome",
		"browser_version":        remote.BrowserVersion,
		"os":                     remote.OS,
		"os_version":             remote.OSVersion,
		"device":                 remote.Device,
		"real_mobile":            remote.RealMobile,
		"project":                remote.Project,
		"build":                  build,
		"name":                   runID,
		"browserstack.username":  remote.Username,
		"browserstack.accessKey": remote.AccessKey,
	}
	if remote.Browser != "" {
		caps["browser"] = strings.ToLower(remote.Browser)
	}
	for k, v := range caps {
		if v == "" {
			delete(caps, k)
		}
	}
	return caps
}

// EndpointURL returns the websocket URL of the grid with the capabilities
// encoded in its caps query parameter.
func EndpointURL(remote config.RemoteConfig, runID string) (string, error) {
	u, err := url.Parse(remote.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse grid endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("grid endpoint must be a websocket url, got %q", remote.Endpoint)
	}
	caps, err := json.Marshal(Capabilities(remote, runID))
	if err != nil {
		return "", fmt.Errorf("encode capabilities: %w", err)
	}
	q := u.Query()
	q.Set("caps", string(caps))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// statusScript is the executor command through which the grid records
// whether the session passed.
func statusScript(status types.SessionStatus) (string, error) {
	state := "failed"
	if status.Passed {
		state = "passed"
	}
	payload, err := json.Marshal(map[string]any{
		"action": "setSessionStatus",
		"arguments": map[string]string{
			"status": state,
			"reason": status.Reason,
		},
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("browserstack_executor: %s", payload), nil
}

// redact hides the credentials carried in a grid URL.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
