package app

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const (
	VivoxTokenActionLogin = "login"
	VivoxTokenActionJoin  = "join"

	vivoxTokenTTL      = time.Hour
	tableChannelPrefix = "bidwhist-"
)

var (
	ErrVivoxNotConfigured = errors.New("vivox config is incomplete")
	ErrVivoxUserRequired  = errors.New("user is required")
	ErrVivoxTableRequired = errors.New("table id is required for join tokens")
)

// VivoxService signs Vivox access tokens so seated controllers can share a
// voice channel per table.
type VivoxService struct {
	secret string
	issuer string
	domain string
	now    func() time.Time
	serial uint64
}

func NewVivoxService(secret, issuer, domain string) *VivoxService {
	return &VivoxService{
		secret: secret,
		issuer: issuer,
		domain: domain,
		now:    time.Now,
	}
}

// Configured reports whether tokens can be signed.
func (s *VivoxService) Configured() bool {
	return s != nil && s.secret != "" && s.issuer != "" && s.domain != ""
}

// LoginToken signs a login token for user.
func (s *VivoxService) LoginToken(user string) (string, error) {
	return s.sign(user, VivoxTokenActionLogin, "")
}

// TableJoinToken signs a token that lets user join the voice channel of table.
func (s *VivoxService) TableJoinToken(user, tableID string) (string, error) {
	if tableID == "" {
		return "", ErrVivoxTableRequired
	}
	return s.sign(user, VivoxTokenActionJoin, TableChannel(tableID))
}

// TableChannel returns the Vivox channel name of a table. Characters Vivox
// rejects in channel names are replaced.
func TableChannel(tableID string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, tableID)
	return tableChannelPrefix + clean
}

func (s *VivoxService) sign(user, action, channel string) (string, error) {
	if !s.Configured() {
		return "", ErrVivoxNotConfigured
	}
	if user == "" {
		return "", ErrVivoxUserRequired
	}

	userURI := "sip:." + s.issuer + "." + user + ".@" + s.domain
	target := userURI
	if action == VivoxTokenActionJoin {
		target = "sip:confctl-g-" + channel + "@" + s.domain
	}
	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": user,
		"exp": now.Add(vivoxTokenTTL).Unix(),
		"vxa": action,
		"vxi": fmt.Sprintf("%d-%d", now.UnixNano(), atomic.AddUint64(&s.serial, 1)),
		"f":   userURI,
		"t":   target,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}
