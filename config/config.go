package config

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort        string
	TesseractDataPath string
	OCRLanguage       string
	Margin            float64
	ContentThreshold  float64
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env file", "error", err)
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	ocrLanguage := os.Getenv("OCR_LANGUAGE")
	if ocrLanguage == "" {
		ocrLanguage = "spa"
	}

	return &Config{
		ServerPort:        serverPort,
		TesseractDataPath: os.Getenv("TESSDATA_PREFIX"),
		OCRLanguage:       ocrLanguage,
		Margin:            envFloat("MATCH_MARGIN", 100.0),
		ContentThreshold:  envFloat("CONTENT_THRESHOLD", 0.98),
	}
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn("ignoring invalid numeric env var", "key", key, "value", raw)
		return fallback
	}
	return v
}
