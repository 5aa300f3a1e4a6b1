package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"grand-strategy/internal/config"
	"grand-strategy/internal/database"
	"grand-strategy/internal/game"
	"grand-strategy/internal/gamerule"
	"grand-strategy/internal/protocol"
	"grand-strategy/internal/world"
)

type fixture struct {
	srv    *Server
	http   *httptest.Server
	gameID string
	player *database.Player
	admin  *database.Player
}

// newFixture stores a ruleset, a small world and a game on server-1 where
// nation Alpha is bound to a regular player.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}

	rules, err := gamerule.Load("../gamerule/testdata/standard.yaml")
	if err != nil {
		t.Fatalf("Failed to load ruleset: %v", err)
	}
	cfg := world.DefaultGenConfig()
	cfg.Name = "small"
	cfg.Seed = 3
	cfg.Territories = 4
	w, err := world.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := db.SaveRuleset(rules); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveWorld(w); err != nil {
		t.Fatal(err)
	}

	player, err := db.CreatePlayer("Ada")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := db.CreatePlayer("Root")
	if err != nil {
		t.Fatal(err)
	}

	s, err := game.NewSavegame("campaign", "server-1", rules.Name, w.Name, game.Date{Month: 1, Year: 1200})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddNation(rules, "Alpha", player.ID, "#ff0000"); err != nil {
		t.Fatal(err)
	}
	if err := s.TransferTerritory(rules, w, w.Territories[0].Name, "Alpha"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveGame(s); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	conf.MapDir = t.TempDir()
	conf.TurnWorkers = 2
	conf.Admins = []string{admin.ID}
	srv := NewWithDB(conf, db)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		srv.hub.CloseAll()
		db.Close()
	})
	return &fixture{srv: srv, http: hs, gameID: s.ID, player: player, admin: admin}
}

// dial connects, authenticates with token and joins server-1.
func (f *fixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	expect(t, conn, protocol.TypeWelcome, nil)
	send(t, conn, protocol.TypeAuthenticate, protocol.AuthenticatePayload{Token: token})
	var auth protocol.AuthResultPayload
	expect(t, conn, protocol.TypeAuthResult, &auth)
	if !auth.Success || auth.Token != token {
		t.Fatalf("Unexpected auth result %+v", auth)
	}
	send(t, conn, protocol.TypeJoinGame, protocol.JoinGamePayload{ServerID: "server-1"})
	expect(t, conn, protocol.TypeJoinedGame, nil)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

// expect reads until a message of msgType arrives, skipping others.
func expect(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var msg protocol.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("Waiting for %s: %v", msgType, err)
		}
		if msg.Type != msgType {
			continue
		}
		if v != nil {
			if err := msg.ParsePayload(v); err != nil {
				t.Fatalf("Bad %s payload: %v", msgType, err)
			}
		}
		return
	}
}

func TestHealthAndGameEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.http.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", resp.StatusCode)
	}

	resp, err = http.Get(f.http.URL + "/api/games/" + f.gameID)
	if err != nil {
		t.Fatal(err)
	}
	var view gameView
	err = json.NewDecoder(resp.Body).Decode(&view)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if view.Name != "campaign" || len(view.Summaries) != 1 || view.Summaries[0].Territories != 1 {
		t.Errorf("Unexpected game view %+v", view)
	}

	resp, err = http.Get(f.http.URL + "/api/games/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown game, got %d", resp.StatusCode)
	}
}

func TestJoinResolvesNation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	send(t, conn, protocol.TypeJoinGame, protocol.JoinGamePayload{ServerID: "server-1"})
	var e protocol.ErrorPayload
	expect(t, conn, protocol.TypeError, &e)
	if e.Code != protocol.ErrCodeNotAuthenticated {
		t.Errorf("Expected not_authenticated before auth, got %s", e.Code)
	}

	send(t, conn, protocol.TypeAuthenticate, protocol.AuthenticatePayload{Token: f.player.Token})
	expect(t, conn, protocol.TypeAuthResult, nil)
	send(t, conn, protocol.TypeJoinGame, protocol.JoinGamePayload{ServerID: "server-1"})
	var joined protocol.JoinedGamePayload
	expect(t, conn, protocol.TypeJoinedGame, &joined)
	if joined.Nation != "Alpha" || joined.GameID != f.gameID {
		t.Errorf("Unexpected join result %+v", joined)
	}
}

func TestNationCommandErrors(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, f.player.Token)

	send(t, conn, protocol.TypeRecruitUnit, protocol.RecruitUnitPayload{
		Territory: "nowhere", UnitType: "Dragon", Size: 10, Force: "Army", Unit: "First",
	})
	var e protocol.ErrorPayload
	expect(t, conn, protocol.TypeError, &e)
	if e.Code != protocol.ErrCodeInvalidInput {
		t.Errorf("Expected invalid_input, got %s (%s)", e.Code, e.Message)
	}

	send(t, conn, protocol.TypeAdvanceTurn, protocol.AdvanceTurnPayload{Months: 1})
	expect(t, conn, protocol.TypeError, &e)
	if e.Code != protocol.ErrCodeForbidden {
		t.Errorf("Expected forbidden for non-admin, got %s", e.Code)
	}

	send(t, conn, "teleport", struct{}{})
	expect(t, conn, protocol.TypeError, &e)
	if e.Code != protocol.ErrCodeUnknownType {
		t.Errorf("Expected unknown_type, got %s", e.Code)
	}
}

func TestAdminAdvancesTurn(t *testing.T) {
	f := newFixture(t)
	watcher := f.dial(t, f.player.Token)
	conn := f.dial(t, f.admin.Token)

	send(t, conn, protocol.TypeAdvanceTurn, protocol.AdvanceTurnPayload{Months: 3})
	var result protocol.ActionResultPayload
	expect(t, conn, protocol.TypeActionResult, &result)
	if !result.Success || result.NothingToDo {
		t.Fatalf("Unexpected result %+v", result)
	}

	var turn protocol.TurnAdvancedPayload
	expect(t, watcher, protocol.TypeTurnAdvanced, &turn)
	if turn.Report.Turn != 1 || turn.Report.Date != (game.Date{Month: 4, Year: 1200}) {
		t.Errorf("Unexpected report turn %d date %s", turn.Report.Turn, turn.Report.Date)
	}

	sg, err := f.srv.repo.Game(f.gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sg.Turn != 1 {
		t.Errorf("Expected saved turn 1, got %d", sg.Turn)
	}
	if sg.Map.Changed || sg.Map.Image == "" {
		t.Errorf("Expected the map to be rendered, got %+v", sg.Map)
	}

	events, err := f.srv.db.GetGameHistory(f.gameID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != database.EventTurnAdvanced {
		t.Errorf("Expected one turn event, got %+v", events)
	}

	send(t, conn, protocol.TypeTransferTerritory, protocol.TransferTerritoryPayload{
		Territory: sg.Nations["Alpha"].TerritoryNames()[0], Nation: "Alpha",
	})
	expect(t, conn, protocol.TypeActionResult, &result)
	if !result.NothingToDo {
		t.Errorf("Expected transfer to the owner to be a no-op, got %+v", result)
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want protocol.ErrorCode
	}{
		{errNotAuthenticated, protocol.ErrCodeNotAuthenticated},
		{database.ErrGameNotFound, protocol.ErrCodeGameNotFound},
		{fmt.Errorf("%w: x", errBadPayload), protocol.ErrCodeInvalidInput},
		{&game.Error{Kind: game.KindInput, Err: game.ErrUnknownForce}, protocol.ErrCodeInvalidInput},
		{&game.Error{Kind: game.KindNonFatal, Err: game.ErrNothingToDo}, protocol.ErrCodeNothingToDo},
		{&game.Error{Kind: game.KindLogic, Err: game.ErrCorruptState}, protocol.ErrCodeInternalError},
		{errors.New("disk full"), protocol.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := errorCode(tt.err); got != tt.want {
				t.Errorf("errorCode(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
