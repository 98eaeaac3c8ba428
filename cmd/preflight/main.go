// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := godotenv.Load(); err == nil {
		ok(".env loaded")
	}

	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL"))
	tgToken := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	tgChat := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))

	if pub == "" {
		warn("PUBLIC_API_KEYS is empty; /api/status is open to anyone who can reach the port.")
	} else if strings.Contains(pub, " ") {
		// Normalize and sanity-check lists (no spaces around commas).
		warn("PUBLIC_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
	} else {
		ok("PUBLIC_API_KEYS set")
	}

	if db == "" {
		warn("DATABASE_URL empty; probe history is not persisted and alert state resets on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty; /api/status accepts cross-origin requests from any origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	for _, name := range []string{"PUBLIC_RPM", "PUBLIC_BURST", "ALERT_COOLDOWN_MS", "HTTP_TIMEOUT_MS"} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			fail(name + " must be a non-negative integer, got " + strconv.Quote(v))
		}
	}

	switch {
	case tgToken != "" && tgChat == "":
		fail("TELEGRAM_BOT_TOKEN is set but TELEGRAM_CHAT_ID is empty.")
	case tgToken == "" && tgChat != "":
		fail("TELEGRAM_CHAT_ID is set but TELEGRAM_BOT_TOKEN is empty.")
	case tgChat != "":
		if _, err := strconv.ParseInt(tgChat, 10, 64); err != nil {
			fail("TELEGRAM_CHAT_ID must be a number, got " + strconv.Quote(tgChat))
		}
		ok("Telegram alerts configured")
	}

	if slack != "" {
		ok("Slack alerts configured")
	}
	if slack == "" && tgToken == "" {
		warn("no alert channel configured; failures only show in the console and the report.")
	}

	ok("preflight passed")
}
