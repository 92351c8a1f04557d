package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDatabase  string
	RedisAddr      string // empty disables Redis; session state falls back to memory
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string
	JWTSecret      string
	JWTExpiryHours int64
	AllowOrigins   []string
}

func New() *Config {
	expiryStr := getEnv("TOKEN_EXPIRY_HOURS", "24")
	expiry, _ := strconv.ParseInt(expiryStr, 10, 64)
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	origins := []string{getEnv("FE_ADDR", "http://localhost:3000")}

	return &Config{
		Port:           getEnv("PORT", "5000"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DB", "quizmaster"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PWD"),
		RedisDB:        redisDB,
		RabbitURL:      os.Getenv("RABBITMQ_URI"),
		RabbitExchange: os.Getenv("RABBITMQ_EXCHANGE"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiryHours: expiry,
		AllowOrigins:   origins,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("ENV %s not set, using default %q", key, fallback)
	return fallback
}
