// Command letterquest-client is the realtime client for the LetterQuest
// cooperative puzzle game.
//
// It supports two modes:
//  1. "play" – connects to the game server, joins a room, and prints
//     broadcasts until interrupted
//  2. "mcp" – exposes the client as an MCP stdio tool server
//
// Flags control the server URL, the bearer token, and debug logging. A
// .env file in the working directory is loaded when present.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/letterquest/client-go/auth"
	"github.com/letterquest/client-go/game/room"
	"github.com/letterquest/client-go/game/session"
	"github.com/letterquest/client-go/game/state"
	"github.com/letterquest/client-go/transport/mcp"
	"github.com/letterquest/client-go/transport/socket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "LetterQuest Client"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	cmd := &cli.Command{
		Name:    "letterquest-client",
		Usage:   "realtime client for the LetterQuest cooperative puzzle game",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "game server websocket URL",
				Value:   "ws://localhost:8080/socket",
				Sources: cli.EnvVars("LETTERQUEST_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token from login",
				Sources: cli.EnvVars("LETTERQUEST_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "play",
				Usage: "connect, join a room, and print broadcasts until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "room",
						Usage: "room ID to join",
					},
					&cli.StringFlag{
						Name:  "username",
						Usage: "display name inside the room",
					},
				},
				Action: runPlay,
			},
			{
				Name:   "mcp",
				Usage:  "run as an MCP stdio tool server",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds a console logger at the level the debug flag selects.
func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// buildClient wires the connection and both synchronizers.
func buildClient(cmd *cli.Command, log zerolog.Logger) (*socket.Conn, *room.Sync, *session.Sync, error) {
	conn, err := socket.NewConn(socket.Config{
		URL:    cmd.String("server"),
		Logger: &log,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	rooms := room.NewSync(conn, room.Config{Logger: &log})
	games := session.NewSync(conn, session.Config{Logger: &log})
	return conn, rooms, games, nil
}

// resolveToken reads the token flag, checking expiry before dialing so a
// stale token fails fast instead of bouncing off the server.
func resolveToken(cmd *cli.Command) (string, error) {
	token := cmd.String("token")
	if token == "" {
		return "", fmt.Errorf("no token; pass --token or set LETTERQUEST_TOKEN")
	}
	if auth.Expired(token, time.Now()) {
		return "", fmt.Errorf("token is expired; log in again")
	}
	return token, nil
}

// runPlay connects, optionally joins a room, and streams broadcasts to the
// console until a shutdown signal arrives.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd.Bool("debug"))

	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}

	conn, rooms, games, err := buildClient(cmd, log)
	if err != nil {
		return err
	}

	rooms.Start()
	defer rooms.Stop()
	games.Start()
	defer games.Stop()

	// Print connection lifecycle and game broadcasts as they arrive.
	subs := []*socket.Subscription{
		conn.Subscribe(socket.EventConnect, func(data json.RawMessage) {
			log.Info().Msg("connected")
		}),
		conn.Subscribe(socket.EventDisconnect, func(data json.RawMessage) {
			log.Warn().Msg("disconnected")
		}),
		conn.Subscribe(state.EventPlayerJoined, func(data json.RawMessage) {
			var ev state.PlayerJoinedEvent
			if json.Unmarshal(data, &ev) == nil {
				log.Info().Str("player", ev.Username).Msg("player joined")
			}
		}),
		conn.Subscribe(state.EventPlayerLeft, func(data json.RawMessage) {
			var ev state.PlayerLeftEvent
			if json.Unmarshal(data, &ev) == nil {
				log.Info().Str("player", ev.Username).Msg("player left")
			}
		}),
		conn.Subscribe(state.EventGameStarted, func(data json.RawMessage) {
			log.Info().Msg("game started")
		}),
		conn.Subscribe(state.EventActionResult, func(data json.RawMessage) {
			var ev state.ActionResultEvent
			if json.Unmarshal(data, &ev) == nil {
				fmt.Printf("%s %s: %s\n", ev.PlayerName, ev.ActionType, ev.Result.Message)
			}
		}),
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	if err := conn.Connect(ctx, token); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Disconnect()

	if roomID := cmd.String("room"); roomID != "" {
		username := cmd.String("username")
		joined, err := rooms.JoinRoom(ctx, room.JoinRoomSpec{RoomID: roomID, Username: username})
		if err != nil {
			return fmt.Errorf("join room: %w", err)
		}
		log.Info().Str("room", joined.Name).Str("code", joined.Code).Msg("joined room")
	}

	// Block until interrupted.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	if current := rooms.CurrentRoom(); !current.IsEmpty() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rooms.LeaveRoom(shutdownCtx, current.ID); err != nil {
			log.Warn().Err(err).Msg("leave room on shutdown failed")
		}
	}
	return nil
}

// runMCP serves the client's tools over MCP stdio. The connection is
// dialed lazily by the connect tool, so the process starts without a token.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd.Bool("debug"))

	conn, rooms, games, err := buildClient(cmd, log)
	if err != nil {
		return err
	}

	rooms.Start()
	defer rooms.Stop()
	games.Start()
	defer games.Stop()
	defer conn.Disconnect()

	client := mcp.NewClient(mcp.Config{
		Dialer: conn,
		Rooms:  rooms,
		Games:  games,
	})

	log.Info().Str("server", cmd.String("server")).Msg("MCP stdio server ready")
	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
