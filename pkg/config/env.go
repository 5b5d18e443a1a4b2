package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds endpoints and secrets read from the environment. Empty values
// disable the matching collaborator; an empty ModelPath means the newest
// trained model is looked up instead.
type Env struct {
	MongoURI           string
	RedisURL           string
	ElasticsearchURL   string
	ElasticsearchUser  string
	ElasticsearchPass  string
	ElasticsearchIndex string
	FrontendOrigins    []string
	ModelPath          string
	Port               string
}

// LoadEnv reads the given dotenv files (".env" when none) without overriding
// variables already set, then collects the environment. Missing files are skipped.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, err
		}
	}
	return Env{
		MongoURI:           os.Getenv("MONGODB_URI"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		ElasticsearchUser:  os.Getenv("ELASTICSEARCH_USER"),
		ElasticsearchPass:  os.Getenv("ELASTICSEARCH_PASS"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "predictions"),
		FrontendOrigins:    splitList(getEnv("FRONTEND_ORIGINS", "http://localhost:3000")),
		ModelPath:          os.Getenv("MODEL_PATH"),
		Port:               getEnv("PORT", "8000"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
