package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/okutsev/TuneRoom/internal/domain/events"
	"github.com/okutsev/TuneRoom/internal/domain/models"
	"github.com/okutsev/TuneRoom/internal/infra/ports/http/dto"
	"github.com/okutsev/TuneRoom/internal/player"
)

var (
	listenServer   string
	listenUser     string
	listenPassword string
	listenRoom     string
	listenName     string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Connect to a room and play audio locally",
	Long: `Connect to a TuneRoom server and play the shared queue through the
local speaker. Without --room a new room is created and its code printed;
with --room the client joins as a listener and follows the host.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runListen(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	listenCmd.Flags().StringVar(&listenServer, "server", "http://localhost:3000", "server base URL")
	listenCmd.Flags().StringVar(&listenUser, "user", "", "username")
	listenCmd.Flags().StringVar(&listenPassword, "password", "", "password")
	listenCmd.Flags().StringVar(&listenRoom, "room", "", "room code to join; empty creates a room")
	listenCmd.Flags().StringVar(&listenName, "name", "", "display name shown to the room")

	rootCmd.AddCommand(listenCmd)
}

// wsEmitter serializes writes to the shared websocket connection.
type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(msg events.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.conn.WriteJSON(msg)
}

func runListen() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}

	client := &http.Client{Jar: jar, Timeout: 30 * time.Second}

	if err := login(client); err != nil {
		return err
	}

	catalog, err := fetchTracks(client)
	if err != nil {
		return err
	}

	conn, err := dialWS(jar)
	if err != nil {
		return err
	}
	defer conn.Close()

	emitter := &wsEmitter{conn: conn}
	transport := player.NewBeepTransport(listenServer)
	engine := player.NewEngine(emitter, transport, catalog)
	transport.SetCallbacks(engine.OnMetadataLoaded, engine.OnTrackEnded)

	if listenRoom == "" {
		err = engine.CreateRoom(listenName)
	} else {
		err = engine.JoinRoom(listenRoom, listenName)
	}
	if err != nil {
		return fmt.Errorf("enter room: %w", err)
	}

	done := make(chan error, 1)

	go func() {
		for {
			var msg events.Message
			if err := conn.ReadJSON(&msg); err != nil {
				done <- err
				return
			}

			if err := engine.HandleServerEvent(msg); err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}

			switch msg.Type {
			case events.TypeRoomCreated:
				fmt.Printf("room created, code: %s\n", engine.Code())
			case events.TypeRoomJoined:
				fmt.Printf("joined room %s\n", engine.Code())
			case events.TypeError:
				fmt.Fprintf(os.Stderr, "server: %s\n", engine.LastError())
			}
		}
	}()

	go commandLoop(engine, catalog)

	return <-done
}

func login(client *http.Client) error {
	body, err := json.Marshal(dto.LoginRequest{
		Username: listenUser,
		Password: listenPassword,
	})
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	resp, err := client.Post(listenServer+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: unexpected status %s", resp.Status)
	}

	return nil
}

func fetchTracks(client *http.Client) ([]models.Track, error) {
	resp, err := client.Get(listenServer + "/api/v1/tracks")
	if err != nil {
		return nil, fmt.Errorf("fetch tracks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tracks: unexpected status %s", resp.Status)
	}

	var list dto.ListTracksResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode tracks: %w", err)
	}

	catalog := make([]models.Track, 0, len(list.Tracks))
	for _, t := range list.Tracks {
		catalog = append(catalog, models.Track{
			Position:   t.Index,
			Title:      t.Title,
			Artist:     t.Artist,
			AudioURL:   t.AudioURL,
			CoverImage: t.CoverImage,
		})
	}

	return catalog, nil
}

func dialWS(jar http.CookieJar) (*websocket.Conn, error) {
	u, err := url.Parse(listenServer)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws"

	dialer := websocket.Dialer{
		Jar:              jar,
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	return conn, nil
}

func commandLoop(engine *player.Engine, catalog []models.Track) {
	fmt.Println("commands: p(lay/pause) n(ext) b(ack) t <index> s <seconds> l(oop) u(nlock) i(nfo) q(uit)")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		ctrl := engine.Controller()

		switch fields[0] {
		case "p":
			ctrl.PlayPause()
		case "n":
			ctrl.NextTrack()
		case "b":
			ctrl.PrevTrack()
		case "t":
			if len(fields) < 2 {
				continue
			}
			index, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			ctrl.SelectTrack(index)
		case "s":
			if len(fields) < 2 {
				continue
			}
			seconds, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				continue
			}
			ctrl.Seek(seconds)
		case "l":
			ctrl.ToggleLoop()
		case "u":
			ctrl.UnlockPlayback()
		case "i":
			printInfo(engine, catalog)
		case "q":
			os.Exit(0)
		}
	}
}

func printInfo(engine *player.Engine, catalog []models.Track) {
	state := engine.State()

	title := "-"
	if state.TrackIndex >= 0 && state.TrackIndex < len(catalog) {
		title = catalog[state.TrackIndex].Title
	}

	fmt.Printf(
		"room=%s role=%s track=%d (%s) time=%.1fs playing=%t looping=%t\n",
		engine.Code(), engine.Role(), state.TrackIndex, title,
		state.CurrentTime, state.IsPlaying, state.IsLooping,
	)

	for _, u := range engine.Users() {
		fmt.Printf("  %s (%s)\n", u.DisplayName, u.Role)
	}

	if engine.AutoplayBlocked() {
		fmt.Println("  playback blocked; press u to unlock")
	}
}
