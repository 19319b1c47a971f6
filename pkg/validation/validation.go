package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxRoomIDLength = 256
	MaxProfileBytes = 16 * 1024
)

var iceSchemes = []string{"stun:", "stuns:", "turn:", "turns:"}

// ValidateRoomID accepts any printable UTF-8 string up to MaxRoomIDLength bytes.
func ValidateRoomID(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("roomID is required")
	}
	if len(roomID) > MaxRoomIDLength {
		return fmt.Errorf("roomID is too long (max %d bytes)", MaxRoomIDLength)
	}
	if !utf8.ValidString(roomID) {
		return fmt.Errorf("roomID must be valid UTF-8")
	}
	for _, r := range roomID {
		if unicode.IsControl(r) {
			return fmt.Errorf("roomID contains control characters")
		}
	}
	return nil
}

// ValidateConnectionID checks the id has the shape the transport assigns.
func ValidateConnectionID(id string) error {
	if id == "" {
		return fmt.Errorf("connection ID is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid connection ID format")
	}
	return nil
}

// ValidateProfile bounds the opaque user profile. Absent profiles are fine.
func ValidateProfile(profile json.RawMessage) error {
	if len(profile) > MaxProfileBytes {
		return fmt.Errorf("user profile is too large (max %d bytes)", MaxProfileBytes)
	}
	if len(profile) > 0 && !json.Valid(profile) {
		return fmt.Errorf("user profile is not valid JSON")
	}
	return nil
}

// ValidateICEURL checks an ICE server URL scheme (RFC 7064, RFC 7065).
func ValidateICEURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("ICE server URL is required")
	}
	lower := strings.ToLower(rawURL)
	for _, scheme := range iceSchemes {
		if strings.HasPrefix(lower, scheme) && len(lower) > len(scheme) {
			return nil
		}
	}
	return fmt.Errorf("invalid ICE server URL %q (expected stun:, stuns:, turn: or turns:)", rawURL)
}

// ValidateOrigin accepts "*" or a browser origin such as https://app.example.com.
func ValidateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid origin %q", origin)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid origin %q (expected http or https)", origin)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("invalid origin %q (must not contain a path)", origin)
	}
	return nil
}

// OriginAllowList matches browser origins against configured ones. Scheme and
// host are compared case-insensitively and a trailing slash is ignored.
type OriginAllowList struct {
	all     bool
	origins map[string]struct{}
}

func NewOriginAllowList(origins []string) *OriginAllowList {
	l := &OriginAllowList{origins: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		if origin == "*" {
			l.all = true
			continue
		}
		if key, ok := originKey(origin); ok {
			l.origins[key] = struct{}{}
		}
	}
	return l
}

// AllowsAll reports whether "*" was configured.
func (l *OriginAllowList) AllowsAll() bool {
	return l.all
}

func (l *OriginAllowList) Allows(origin string) bool {
	if l.all {
		return true
	}
	key, ok := originKey(origin)
	if !ok {
		return false
	}
	_, ok = l.origins[key]
	return ok
}

func originKey(origin string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), true
}
