// Package businessflow contains the core business logic and use cases for subscription workflows
package businessflow

import (
	"fmt"
	"strings"

	"github.com/lanternmail/lantern/config"
)

// BuildNotificationPayload assembles the flat key/value mapping consumed by
// the dispatcher's template layer. Pure given its inputs; missing
// configuration fields degrade to empty strings rather than failing.
//
// The channel value is duplicated under "channel" and "channels" because
// existing notification templates reference either key.
func BuildNotificationPayload(token, email string, channelTitles []string, metadata *ClientMetadata, cfg *config.NotificationConfig) map[string]string {
	var host, baseURL, requestURI string
	if metadata != nil {
		host = metadata.Host
		baseURL = metadata.BaseURL
		requestURI = metadata.RequestURI
	}

	link := baseURL + requestURI
	if strings.Contains(requestURI, "?") {
		link += "&token=" + token
	} else {
		link += "?token=" + token
	}

	joined := strings.Join(channelTitles, "\n")

	var adminEmail, adminName, subjectTemplate string
	if cfg != nil {
		adminEmail = cfg.AdminEmail
		adminName = cfg.AdminName
		subjectTemplate = cfg.SubjectTemplate
	}
	if subjectTemplate == "" {
		subjectTemplate = "Your subscription on %s"
	}

	return map[string]string{
		"email":       email,
		"token":       token,
		"domain":      host,
		"link":        link,
		"channel":     joined,
		"channels":    joined,
		"admin_email": adminEmail,
		"admin_name":  adminName,
		"subject":     fmt.Sprintf(subjectTemplate, host),
	}
}
