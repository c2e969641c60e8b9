package tools

import (
	"fmt"
	"time"
)

// Gestures plays named physical animations on the robot body.
type Gestures interface {
	Play(name string) error
}

// BuiltinConfig wires the built-in tools to the robot. Nil fields degrade
// gracefully: the tool reports that the capability is unavailable instead of
// failing the conversation.
type BuiltinConfig struct {
	Gestures  Gestures
	SetVolume func(percent int) error
}

type setVolumeParams struct {
	Percent int `json:"percent" jsonschema:"title=Percent,description=Speaker volume from 0 to 100"`
}

type lookParams struct {
	Direction string `json:"direction" jsonschema:"title=Direction,description=Direction to look,enum=left,enum=right,enum=up,enum=down,enum=center"`
}

// Builtin returns the standard tool set for Juno.
func Builtin(cfg BuiltinConfig) []Tool {
	return []Tool{
		{
			Name:        "get_time",
			Description: "Get the current date and time. Use this when the user asks what time or day it is.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			NonBlocking: true,
			Handler: func(args map[string]any) (string, error) {
				return time.Now().Format("Monday, January 2, 2006 at 3:04 PM"), nil
			},
		},
		{
			Name:        "set_volume",
			Description: "Set Juno's speaker volume. Use this when the user asks you to speak louder or quieter.",
			Parameters:  ParamsFor(setVolumeParams{}),
			Handler: func(args map[string]any) (string, error) {
				percent, _ := args["percent"].(float64)
				if percent < 0 || percent > 100 {
					return "Volume must be between 0 and 100", nil
				}
				if cfg.SetVolume == nil {
					return "Volume control is not available", nil
				}
				if err := cfg.SetVolume(int(percent)); err != nil {
					return "", err
				}
				return fmt.Sprintf("Volume set to %d%%", int(percent)), nil
			},
		},
		{
			Name:        "wave_hello",
			Description: "Wave Juno's arm in greeting. Use this when greeting someone or saying goodbye.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			Handler:     gestureHandler(cfg, "wave_hello", "Waving hello"),
		},
		{
			Name:        "nod_yes",
			Description: "Nod Juno's head in agreement. Use this to physically agree with the user.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			Handler:     gestureHandler(cfg, "nod_yes", "Nodding"),
		},
		{
			Name:        "look",
			Description: "Turn Juno's head to look in a direction. Use this to look at something or someone.",
			Parameters:  ParamsFor(lookParams{}),
			Handler: func(args map[string]any) (string, error) {
				dir, _ := args["direction"].(string)
				if dir == "" {
					return "Please specify a direction", nil
				}
				if cfg.Gestures == nil {
					return "Head movement is not available", nil
				}
				if err := cfg.Gestures.Play("look_" + dir); err != nil {
					return "", err
				}
				return fmt.Sprintf("Looking %s", dir), nil
			},
		},
	}
}

func gestureHandler(cfg BuiltinConfig, gesture, reply string) func(map[string]any) (string, error) {
	return func(args map[string]any) (string, error) {
		if cfg.Gestures == nil {
			return "Gestures are not available", nil
		}
		if err := cfg.Gestures.Play(gesture); err != nil {
			return "", err
		}
		return reply, nil
	}
}
