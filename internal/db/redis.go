package db

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// InitRedis builds a client and pings it. A failed ping is logged but not
// fatal; session state falls back to degraded behavior until Redis is back.
func InitRedis(addr, password string, database int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Error connecting to Redis: %s", err)
	} else {
		log.Println("Successfully connected to Redis")
	}
	return client
}
