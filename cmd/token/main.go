// Command token は更新系APIを呼び出すためのJWTを発行します。
//
//	JWT_SECRET=... go run ./cmd/token --subject ops
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"crypto_backend/internal/platform/config"
	jwtmw "crypto_backend/internal/platform/jwt"
)

func main() {
	var subject string
	v, _, err := config.Load("token", config.Options{
		Args: os.Args[1:],
		Flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&subject, "subject", "operator", "token subject")
		},
	})
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	cfg := jwtmw.LoadConfig(v)
	token, err := jwtmw.NewGenerator(cfg.Secret, cfg.TTL).GenerateToken(subject)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
