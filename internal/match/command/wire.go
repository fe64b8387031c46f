package command

import (
	"encoding/json"
	"fmt"

	"github.com/auragrid/auragrid-server-go/internal/match/grid"
)

// envelope is the wire shape: a command type name plus an all-integer
// key/value payload. Every field round-trips without precision loss.
type envelope struct {
	Type   string         `json:"type"`
	Fields map[string]int `json:"fields"`
}

// Encode serializes a command for the authoritative path.
func Encode(cmd Command) ([]byte, error) {
	data, err := json.Marshal(envelope{
		Type:   string(cmd.Kind()),
		Fields: cmd.Fields(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", cmd.Kind(), err)
	}
	return data, nil
}

// decoders maps each command kind to its payload constructor. The kind
// set is closed; an unknown type name is a decode error.
var decoders = map[Kind]func(f map[string]int) Command{
	KindMove: func(f map[string]int) Command {
		return &Move{
			Player: f["player"],
			UnitID: f["unit_id"],
			Target: grid.Position{X: f["x"], Y: f["y"]},
		}
	},
	KindAbility: func(f map[string]int) Command {
		return &Ability{
			Player:       f["player"],
			UnitID:       f["unit_id"],
			AbilityIndex: f["ability_index"],
			Target:       grid.Position{X: f["x"], Y: f["y"]},
			Overload:     f["overload"] != 0,
		}
	},
	KindReposition: func(f map[string]int) Command {
		return &Reposition{
			Player: f["player"],
			UnitID: f["unit_id"],
			Target: grid.Position{X: f["x"], Y: f["y"]},
		}
	},
	KindEndTurn: func(f map[string]int) Command {
		return &EndTurn{Player: f["player"]}
	},
}

// Decode reconstructs a command from its wire form.
func Decode(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode command envelope: %w", err)
	}
	decoder, ok := decoders[Kind(env.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}
	if env.Fields == nil {
		env.Fields = map[string]int{}
	}
	return decoder(env.Fields), nil
}
