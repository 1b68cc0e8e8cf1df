package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"azdoauth/internal/provider/azuredevops/azdotest"
)

var (
	port     = flag.Int("port", 9400, "server port")
	key      = flag.String("key", azdotest.DefaultKey, "HS256 key for assertions and access tokens")
	clientID = flag.String("client-id", "", "accepted client_id; empty accepts any")
)

func main() {
	flag.Parse()

	mock := azdotest.New(azdotest.Config{
		Key:      *key,
		ClientID: *clientID,
		User: azdotest.User{
			ID:          "00000000-0000-0000-0000-000000000001",
			DisplayName: "Mock User",
			Email:       "mock.user@example.com",
			// 1x1 transparent GIF
			Avatar: "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7",
		},
		TokenLifetime: time.Hour,
	})

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("mock Azure DevOps listening", "addr", addr)
	slog.Info("point the sign-in server at it with AZDOAUTH_PROVIDER_BASEURL", "value", fmt.Sprintf("http://localhost:%d", *port))

	if err := http.ListenAndServe(addr, mock); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
