// Command agent runs the device side of a paired room.
//
//	agent login   authorize Spotify and save the token file
//	agent run     relay playback for the configured room (default)
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tandem/internal/agent"
	"tandem/internal/spotify"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

func main() {
	flag.Parse()
	cmd := "run"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg, err := agent.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "login":
		err = login(ctx, cfg)
	case "run":
		err = run(ctx, cfg)
	default:
		err = fmt.Errorf("usage: agent [login|run]")
	}
	if err != nil {
		log.Fatal(err)
	}
}

func login(ctx context.Context, cfg *agent.Config) error {
	if cfg.SpotifyClientID == "" || cfg.SpotifyRedirectURL == "" {
		return errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_REDIRECT_URL are required to log in")
	}
	redirect, err := url.Parse(cfg.SpotifyRedirectURL)
	if err != nil {
		return fmt.Errorf("invalid SPOTIFY_REDIRECT_URL: %w", err)
	}

	auth := spotify.NewAuthenticator(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL)
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	state := hex.EncodeToString(buf)

	tokens := make(chan *oauth2.Token, 1)
	errs := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "authorization failed", http.StatusForbidden)
			errs <- err
			return
		}
		fmt.Fprintln(w, "Logged in. You can close this window.")
		tokens <- tok
	})
	srv := &http.Server{Addr: redirect.Host, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer srv.Close()

	log.Printf("Open this URL to authorize Spotify:\n%s", auth.AuthURL(state))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return fmt.Errorf("spotify login: %w", err)
	case tok := <-tokens:
		if err := spotify.SaveToken(cfg.SpotifyTokenFile, tok); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		log.Printf("Saved Spotify token to %s", cfg.SpotifyTokenFile)
		return nil
	}
}

func run(ctx context.Context, cfg *agent.Config) error {
	tok, err := spotify.LoadToken(cfg.SpotifyTokenFile)
	if err != nil {
		return fmt.Errorf("load spotify token (run `agent login` first): %w", err)
	}

	var refresher spotify.Refresher
	if cfg.SpotifyClientID != "" {
		refresher = spotify.NewAuthenticator(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL)
	}
	creds := spotify.NewCredentials(tok, refresher, func(next *oauth2.Token) {
		if err := spotify.SaveToken(cfg.SpotifyTokenFile, next); err != nil {
			log.Printf("Failed to persist refreshed token: %v", err)
		}
	})

	opts := []spotify.Option{spotify.WithTransport(otelhttp.NewTransport(http.DefaultTransport))}
	if cfg.SpotifyDeviceID != "" {
		opts = append(opts, spotify.WithDeviceID(cfg.SpotifyDeviceID))
	}
	player := spotify.NewQueue(spotify.NewClient(creds, opts...))

	api := agent.NewAPIClient(cfg.APIURL, cfg.APIToken)
	sender := agent.NewCommandSender(api, cfg.RoomID, cfg.UserID)
	listener := agent.NewListener(player, api, creds, agent.ListenerOptions{
		RoomID:   cfg.RoomID,
		UserID:   cfg.UserID,
		Debounce: cfg.Debounce,
		Cooldown: cfg.Cooldown,
	})
	feed := agent.NewFeedClient(cfg.WSURL, cfg.RoomID, cfg.APIToken)
	synchronizer := agent.NewSynchronizer(api, sender, player, listener, feed, agent.SynchronizerOptions{
		RoomID:       cfg.RoomID,
		UserID:       cfg.UserID,
		PollInterval: cfg.PollInterval,
		Cooldown:     cfg.Cooldown,
	})

	go func() {
		if err := feed.Run(ctx); err != nil {
			log.Printf("Room feed stopped: %v", err)
		}
	}()

	log.Printf("Relaying playback for room %s as %s", cfg.RoomID, cfg.UserID)
	if err := synchronizer.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "agent stopped")
	return nil
}
