package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"grand-strategy/internal/database"
	"grand-strategy/internal/game"
	"grand-strategy/internal/protocol"
)

var (
	errNotAuthenticated = errors.New("not authenticated")
	errNoGame           = errors.New("join a game first")
	errNoNation         = errors.New("no nation is bound to this player")
	errForbidden        = errors.New("administrators only")
	errUnknownType      = errors.New("unknown message type")
	errBadPayload       = errors.New("malformed payload")
)

// Handlers processes incoming messages.
type Handlers struct {
	s *Server
}

// NewHandlers creates a new handler set.
func NewHandlers(s *Server) *Handlers {
	return &Handlers{s: s}
}

// Handle routes a message to the appropriate handler.
func (h *Handlers) Handle(ctx context.Context, client *Client, msg *protocol.Message) {
	var err error

	switch msg.Type {
	case protocol.TypePing:
		client.reply(msg.ID, protocol.TypePong, struct{}{})
	case protocol.TypeAuthenticate:
		err = h.handleAuthenticate(client, msg)
	case protocol.TypeJoinGame:
		err = h.handleJoinGame(client, msg)
	case protocol.TypeGameState:
		err = h.handleGameState(client, msg)
	case protocol.TypeGameHistory:
		err = h.handleGameHistory(client, msg)
	case protocol.TypeCanBuyBuilding:
		err = h.handleCanBuyBuilding(client, msg)
	case protocol.TypeBuyBuilding,
		protocol.TypeDestroyBuilding,
		protocol.TypeSetBuildingActive:
		err = h.handleBuilding(ctx, client, msg)
	case protocol.TypeRecruitUnit,
		protocol.TypeCombineUnits,
		protocol.TypeSplitUnit,
		protocol.TypeCombineForces,
		protocol.TypeSplitForce,
		protocol.TypeDisbandUnit,
		protocol.TypeDisbandForce,
		protocol.TypeSetForceActive,
		protocol.TypeMoveForce,
		protocol.TypeStopForce:
		err = h.handleMilitary(ctx, client, msg)
	case protocol.TypeAdvanceTurn:
		err = h.handleAdvanceTurn(ctx, client, msg)
	case protocol.TypeTransferTerritory:
		err = h.handleTransferTerritory(ctx, client, msg)
	case protocol.TypeSetRelation:
		err = h.handleSetRelation(ctx, client, msg)
	case protocol.TypeStartBattle, protocol.TypeEndBattle:
		err = h.handleBattle(ctx, client, msg)
	default:
		err = fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}

	if err != nil {
		h.sendError(client, msg, err)
	}
}

// errorCode maps an error to the code reported to clients.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, errNotAuthenticated):
		return protocol.ErrCodeNotAuthenticated
	case errors.Is(err, errNoGame), errors.Is(err, database.ErrGameNotFound):
		return protocol.ErrCodeGameNotFound
	case errors.Is(err, errNoNation):
		return protocol.ErrCodeNoNation
	case errors.Is(err, errForbidden):
		return protocol.ErrCodeForbidden
	case errors.Is(err, errUnknownType):
		return protocol.ErrCodeUnknownType
	case errors.Is(err, errBadPayload), game.IsInput(err):
		return protocol.ErrCodeInvalidInput
	case game.IsNonFatal(err):
		return protocol.ErrCodeNothingToDo
	default:
		return protocol.ErrCodeInternalError
	}
}

func (h *Handlers) sendError(client *Client, msg *protocol.Message, err error) {
	code := errorCode(err)
	text := err.Error()
	if code == protocol.ErrCodeInternalError {
		slog.Error("command failed",
			"type", msg.Type,
			"player", client.PlayerID,
			"game", client.GameID(),
			"error", err,
		)
		text = "internal error"
	}
	client.sendError(msg.ID, code, text)
}

func parse(msg *protocol.Message, v any) error {
	if err := msg.ParsePayload(v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

// handleAuthenticate handles player authentication/registration.
func (h *Handlers) handleAuthenticate(client *Client, msg *protocol.Message) error {
	var payload protocol.AuthenticatePayload
	if err := parse(msg, &payload); err != nil {
		return err
	}

	db := h.s.db
	var player *database.Player
	var err error

	// Try to find existing player by token
	if payload.Token != "" {
		player, err = db.GetPlayerByToken(payload.Token)
		if err != nil && !errors.Is(err, database.ErrPlayerNotFound) {
			return err
		}
	}

	if player == nil {
		name := payload.Name
		if name == "" {
			name = "Player"
		}
		player, err = db.CreatePlayer(name)
		if err != nil {
			return err
		}
		slog.Info("player created", "name", player.Name, "player", player.ID)
	} else {
		if err := db.UpdatePlayerLastSeen(player.ID); err != nil {
			slog.Warn("failed to update last seen", "player", player.ID, "error", err)
		}
		slog.Info("player reconnected", "name", player.Name, "player", player.ID)
	}

	client.PlayerID = player.ID
	client.Name = player.Name

	client.reply(msg.ID, protocol.TypeAuthResult, protocol.AuthResultPayload{
		Success:  true,
		PlayerID: player.ID,
		Token:    player.Token,
		Name:     player.Name,
	})
	return nil
}

// handleJoinGame binds the connection to the game hosted by a server and
// resolves the caller's nation.
func (h *Handlers) handleJoinGame(client *Client, msg *protocol.Message) error {
	if client.PlayerID == "" {
		return errNotAuthenticated
	}
	var payload protocol.JoinGamePayload
	if err := parse(msg, &payload); err != nil {
		return err
	}

	gameID, err := h.s.db.GetGameIDForServer(payload.ServerID)
	if err != nil {
		return err
	}
	sg, err := h.s.repo.Game(gameID)
	if err != nil {
		return err
	}

	h.s.hub.AddClientToGame(client, gameID)

	joined := protocol.JoinedGamePayload{GameID: sg.ID, Name: sg.Name}
	if n, err := sg.NationForRole(client.PlayerID); err == nil {
		joined.Nation = n.Name
	}
	slog.Debug("client joined game", "player", client.PlayerID, "game", gameID, "nation", joined.Nation)

	client.reply(msg.ID, protocol.TypeJoinedGame, joined)
	client.reply(msg.ID, protocol.TypeGameState, protocol.GameStatePayload{
		Game:      sg,
		Summaries: sg.Summaries(),
	})
	return nil
}

// handleGameState sends the current state of the joined game.
func (h *Handlers) handleGameState(client *Client, msg *protocol.Message) error {
	gameID := client.GameID()
	if gameID == "" {
		return errNoGame
	}
	sg, err := h.s.repo.Game(gameID)
	if err != nil {
		return err
	}
	client.reply(msg.ID, protocol.TypeGameState, protocol.GameStatePayload{
		Game:      sg,
		Summaries: sg.Summaries(),
	})
	return nil
}

// handleGameHistory sends the audit log of the joined game.
func (h *Handlers) handleGameHistory(client *Client, msg *protocol.Message) error {
	gameID := client.GameID()
	if gameID == "" {
		return errNoGame
	}
	events, err := h.s.db.GetGameHistory(gameID)
	if err != nil {
		return err
	}
	entries := make([]protocol.HistoryEntry, len(events))
	for i, e := range events {
		entries[i] = protocol.HistoryEntry{
			ID:      e.ID,
			Turn:    e.Turn,
			Date:    game.Date{Month: e.Month, Year: e.Year}.String(),
			Nation:  e.Nation,
			Type:    e.EventType,
			Message: e.Message,
		}
	}
	client.reply(msg.ID, protocol.TypeGameHistory, protocol.GameHistoryPayload{Events: entries})
	return nil
}

// handleCanBuyBuilding answers whether a purchase would succeed without
// changing anything.
func (h *Handlers) handleCanBuyBuilding(client *Client, msg *protocol.Message) error {
	var p protocol.BuildingPayload
	if err := parse(msg, &p); err != nil {
		return err
	}
	sess, nation, err := h.session(client, false)
	if err != nil {
		return err
	}
	result := protocol.ActionResultPayload{RequestID: msg.ID, Action: string(msg.Type), Success: true}
	if err := sess.CanBuyBuilding(nation, p.Territory, p.Building); err != nil {
		if !game.IsInput(err) {
			return err
		}
		result.Success = false
		result.Message = err.Error()
	}
	client.reply(msg.ID, protocol.TypeActionResult, result)
	return nil
}

// session loads the client's game. For nation commands it also resolves the
// caller's nation; administrative commands need the admin list instead.
func (h *Handlers) session(client *Client, admin bool) (*game.Session, string, error) {
	if client.PlayerID == "" {
		return nil, "", errNotAuthenticated
	}
	gameID := client.GameID()
	if gameID == "" {
		return nil, "", errNoGame
	}
	if admin && !h.s.cfg.IsAdmin(client.PlayerID) {
		return nil, "", errForbidden
	}
	sess, err := h.s.repo.Session(gameID, h.s.cfg.TurnWorkers)
	if err != nil {
		return nil, "", err
	}
	if admin {
		return sess, "", nil
	}
	n, err := sess.Save.NationForRole(client.PlayerID)
	if err != nil {
		return nil, "", errNoNation
	}
	return sess, n.Name, nil
}

// command runs fn against the client's game under the game lock and saves
// the result. fn returns the history message for the change. A non-fatal
// error is reported as nothing to do and nothing is saved.
func (h *Handlers) command(ctx context.Context, client *Client, msg *protocol.Message, admin bool, event string,
	fn func(sess *game.Session, nation string) (string, error)) error {
	gameID := client.GameID()
	if gameID == "" {
		return errNoGame
	}
	unlock := h.s.lockGame(gameID)
	defer unlock()

	sess, nation, err := h.session(client, admin)
	if err != nil {
		return err
	}

	result := protocol.ActionResultPayload{RequestID: msg.ID, Action: string(msg.Type), Success: true}
	summary, err := fn(sess, nation)
	if game.IsNonFatal(err) {
		result.NothingToDo = true
		result.Message = err.Error()
		client.reply(msg.ID, protocol.TypeActionResult, result)
		return nil
	}
	if err != nil {
		return err
	}

	redrawn, err := sess.RefreshMap(ctx, h.s.renderer)
	if err != nil {
		// The map stays marked as changed and is retried on the next command.
		slog.Warn("map render failed", "game", gameID, "error", err)
	}
	if err := h.s.repo.SaveGame(sess.Save); err != nil {
		return err
	}
	if err := h.s.db.AddHistoryEvent(sess.Save, nation, event, summary); err != nil {
		slog.Warn("failed to record history", "game", gameID, "error", err)
	}

	result.Message = summary
	client.reply(msg.ID, protocol.TypeActionResult, result)

	if redrawn {
		h.s.hub.notifyGame(gameID, protocol.TypeMapChanged, protocol.MapChangedPayload{
			Generation: sess.Save.Map.Generation,
			Image:      sess.Save.Map.Image,
			Colors:     sess.Save.ColorAssignment(),
		})
	}
	return nil
}

// handleBuilding handles building purchases, demolition and toggling.
func (h *Handlers) handleBuilding(ctx context.Context, client *Client, msg *protocol.Message) error {
	var p protocol.BuildingInstancePayload
	if err := parse(msg, &p); err != nil {
		return err
	}
	return h.command(ctx, client, msg, false, database.EventCommand, func(sess *game.Session, nation string) (string, error) {
		switch msg.Type {
		case protocol.TypeBuyBuilding:
			return fmt.Sprintf("bought %s in %s", p.Building, p.Territory),
				sess.BuyBuilding(nation, p.Territory, p.Building)
		case protocol.TypeDestroyBuilding:
			return fmt.Sprintf("destroyed %s #%d in %s", p.Building, p.Index, p.Territory),
				sess.DestroyBuilding(nation, p.Territory, p.Building, p.Index)
		default:
			return fmt.Sprintf("set %s #%d in %s active=%t", p.Building, p.Index, p.Territory, p.Active),
				sess.SetBuildingActive(nation, p.Territory, p.Building, p.Index, p.Active)
		}
	})
}

// handleMilitary handles unit and force commands.
func (h *Handlers) handleMilitary(ctx context.Context, client *Client, msg *protocol.Message) error {
	var run func(sess *game.Session, nation string) (string, error)

	switch msg.Type {
	case protocol.TypeRecruitUnit:
		var p protocol.RecruitUnitPayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			return fmt.Sprintf("recruited %d %s as %s/%s in %s", p.Size, p.UnitType, p.Force, p.Unit, p.Territory),
				sess.RecruitUnit(nation, p.Territory, p.UnitType, p.Size, p.Force, p.Unit)
		}
	case protocol.TypeCombineUnits:
		var p protocol.CombineUnitsPayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			return fmt.Sprintf("combined %s into %s in %s", p.B, p.A, p.Force),
				sess.CombineUnits(nation, p.Force, p.A, p.B)
		}
	case protocol.TypeSplitUnit:
		var p protocol.SplitUnitPayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			return fmt.Sprintf("split %s in %s into %d parts", p.Unit, p.Force, len(p.Parts)),
				sess.SplitUnit(nation, p.Force, p.Unit, p.Parts)
		}
	case protocol.TypeCombineForces:
		var p protocol.CombineForcesPayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			return fmt.Sprintf("combined %s into %s", p.Source, p.Target),
				sess.CombineForces(nation, p.Target, p.Source)
		}
	case protocol.TypeSplitForce:
		var p protocol.SplitForcePayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			name, err := sess.SplitForce(nation, p.Force, p.Units)
			return fmt.Sprintf("split %s off %s", name, p.Force), err
		}
	case protocol.TypeDisbandUnit:
		var p protocol.UnitPayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			return fmt.Sprintf("disbanded %s/%s", p.Force, p.Unit),
				sess.DisbandUnit(nation, p.Force, p.Unit)
		}
	default:
		var p protocol.ForcePayload
		if err := parse(msg, &p); err != nil {
			return err
		}
		run = func(sess *game.Session, nation string) (string, error) {
			switch msg.Type {
			case protocol.TypeDisbandForce:
				return "disbanded " + p.Force, sess.DisbandForce(nation, p.Force)
			case protocol.TypeSetForceActive:
				return fmt.Sprintf("set %s active=%t", p.Force, p.Active), sess.SetForceActive(nation, p.Force, p.Active)
			case protocol.TypeMoveForce:
				return fmt.Sprintf("%s marching to %s", p.Force, p.Target), sess.MoveForce(nation, p.Force, p.Target)
			default:
				return p.Force + " halted", sess.StopForce(nation, p.Force)
			}
		}
	}
	return h.command(ctx, client, msg, false, database.EventCommand, run)
}

// handleAdvanceTurn advances the game and broadcasts the report.
func (h *Handlers) handleAdvanceTurn(ctx context.Context, client *Client, msg *protocol.Message) error {
	var p protocol.AdvanceTurnPayload
	if err := parse(msg, &p); err != nil {
		return err
	}
	var report *game.TurnReport
	var save *game.Savegame
	err := h.command(ctx, client, msg, true, database.EventTurnAdvanced, func(sess *game.Session, _ string) (string, error) {
		var err error
		report, err = sess.AdvanceTurn(ctx, p.Months)
		if err != nil {
			return "", err
		}
		save = sess.Save
		return fmt.Sprintf("turn %d, %s", report.Turn, report.Date), nil
	})
	if err != nil || report == nil {
		return err
	}

	for _, ic := range report.Interceptions {
		message := fmt.Sprintf("%s intercepted by %s in %s", ic.Mover, ic.Defender, ic.Territory)
		if err := h.s.db.AddHistoryEvent(save, ic.Mover.Nation, database.EventIntercept, message); err != nil {
			slog.Warn("failed to record history", "game", save.ID, "error", err)
		}
	}
	h.s.hub.notifyGame(save.ID, protocol.TypeTurnAdvanced, protocol.TurnAdvancedPayload{Report: report})
	return nil
}

// handleTransferTerritory moves a territory to another nation.
func (h *Handlers) handleTransferTerritory(ctx context.Context, client *Client, msg *protocol.Message) error {
	var p protocol.TransferTerritoryPayload
	if err := parse(msg, &p); err != nil {
		return err
	}
	return h.command(ctx, client, msg, true, database.EventTransfer, func(sess *game.Session, _ string) (string, error) {
		return fmt.Sprintf("%s transferred to %s", p.Territory, p.Nation),
			sess.TransferTerritory(p.Territory, p.Nation)
	})
}

// handleSetRelation records a diplomatic stance.
func (h *Handlers) handleSetRelation(ctx context.Context, client *Client, msg *protocol.Message) error {
	var p protocol.SetRelationPayload
	if err := parse(msg, &p); err != nil {
		return err
	}
	relation := game.Relation(p.Relation)
	if strings.EqualFold(p.Relation, "neutral") {
		relation = ""
	}
	return h.command(ctx, client, msg, true, database.EventCommand, func(sess *game.Session, _ string) (string, error) {
		return fmt.Sprintf("%s regards %s as %s", p.Nation, p.Other, p.Relation),
			sess.SetRelation(p.Nation, p.Other, relation)
	})
}

// handleBattle starts or ends a battle.
func (h *Handlers) handleBattle(ctx context.Context, client *Client, msg *protocol.Message) error {
	var p protocol.BattlePayload
	if err := parse(msg, &p); err != nil {
		return err
	}
	return h.command(ctx, client, msg, true, database.EventCommand, func(sess *game.Session, _ string) (string, error) {
		if msg.Type == protocol.TypeEndBattle {
			return fmt.Sprintf("battle of %s ended", p.A), sess.EndBattle(p.A)
		}
		if p.B == nil {
			return "", fmt.Errorf("%w: start_battle needs two forces", errBadPayload)
		}
		return fmt.Sprintf("%s engaged %s", p.A, *p.B), sess.StartBattle(p.A, *p.B)
	})
}
