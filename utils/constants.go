package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for admin access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for admin refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// ConfirmTokenLength is the length of the URL-safe confirmation token
	ConfirmTokenLength = 43

	// CaptchaTTL is the time window during which a captcha challenge stays valid
	CaptchaTTL = 5 * time.Minute
)

// HTTP constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Cache constants
const (
	// ChannelTitleCacheKey is the redis hash holding id -> title for the catalog
	ChannelTitleCacheKey = "channel_titles"

	// ChannelTitleCacheTTL bounds staleness of cached channel titles
	ChannelTitleCacheTTL = 10 * time.Minute
)
