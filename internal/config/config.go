package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration of the vinyl apps, loaded from
// environment variables.
type Config struct {
	// Audio
	SampleRate int
	BufferSize time.Duration // player buffer length

	// Transport
	Tempo        float64 // host tempo in beats per minute
	BeatsPerLoop int     // 0 = guess from tempo and length

	// Persistence
	StateDB string // sqlite database path, empty disables persistence
	Deck    string // name under which deck state is stored

	// Timecode decoding
	LearnHops      int
	AmplitudeFloor float64
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate: envInt("VINYL_SAMPLE_RATE", 44100),
		BufferSize: time.Duration(envInt("VINYL_BUFFER_MS", 50)) * time.Millisecond,

		Tempo:        envFloat("VINYL_TEMPO", 120),
		BeatsPerLoop: envInt("VINYL_BEATS_PER_LOOP", 0),

		StateDB: envStr("VINYL_STATE_DB", "vinyl.db"),
		Deck:    envStr("VINYL_DECK", "A"),

		LearnHops:      envInt("VINYL_LEARN_HOPS", 64),
		AmplitudeFloor: envFloat("VINYL_AMPLITUDE_FLOOR", 0.01),
	}
}

// Validate reports the first setting outside the range the audio engine
// accepts, naming the environment variable to fix.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("VINYL_SAMPLE_RATE must be positive, got %d", c.SampleRate)
	case c.BufferSize <= 0:
		return fmt.Errorf("VINYL_BUFFER_MS must be positive, got %v", c.BufferSize)
	case c.Tempo < 0:
		return fmt.Errorf("VINYL_TEMPO can't be negative, got %v", c.Tempo)
	case c.BeatsPerLoop < 0:
		return fmt.Errorf("VINYL_BEATS_PER_LOOP can't be negative, got %d", c.BeatsPerLoop)
	case c.LearnHops < 1:
		return fmt.Errorf("VINYL_LEARN_HOPS must be at least 1, got %d", c.LearnHops)
	case c.AmplitudeFloor < 0:
		return fmt.Errorf("VINYL_AMPLITUDE_FLOOR can't be negative, got %v", c.AmplitudeFloor)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
