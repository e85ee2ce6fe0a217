package auth

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
)

// Config is the bearer verification setup; a zero Config disables it.
type Config struct {
	Secret    string
	Issuer    string
	Audience  string
	Leeway    time.Duration
	AdminRole string
	DevBypass bool
}

func New(c Config) *Middleware {
	return &Middleware{
		secret:    []byte(c.Secret),
		issuer:    c.Issuer,
		audience:  c.Audience,
		leeway:    c.Leeway,
		adminRole: c.AdminRole,
		devBypass: c.DevBypass,
	}
}

// ProvideAuthentication reads the INVOKE_JWT_* environment.
func ProvideAuthentication() *Middleware {
	leeway := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("INVOKE_JWT_LEEWAY_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			leeway = time.Duration(n) * time.Second
		}
	}
	return New(Config{
		Secret:    os.Getenv("INVOKE_JWT_SECRET"),
		Issuer:    strings.TrimSpace(os.Getenv("INVOKE_JWT_ISSUER")),
		Audience:  strings.TrimSpace(os.Getenv("INVOKE_JWT_AUDIENCE")),
		Leeway:    leeway,
		AdminRole: os.Getenv("ADMIN_ROLE_NAME"),
		DevBypass: os.Getenv("AUTH_DEV_BYPASS") == "true",
	})
}

var Module = fx.Options(
	fx.Provide(ProvideAuthentication),
)
