package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"shipboard-community/internal/config"
	"shipboard-community/internal/domain/ports/repository"
	pg "shipboard-community/internal/infra/db/postgres"
	red "shipboard-community/internal/infra/redis"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id           UUID PRIMARY KEY,
  username     TEXT NOT NULL UNIQUE,
  display_name TEXT,
  avatar_ref   TEXT
);
CREATE TABLE IF NOT EXISTS user_blocks (
  user_id    UUID NOT NULL REFERENCES users(id),
  blocked_id UUID NOT NULL REFERENCES users(id),
  PRIMARY KEY (user_id, blocked_id)
);
CREATE TABLE IF NOT EXISTS user_mutes (
  user_id  UUID NOT NULL REFERENCES users(id),
  muted_id UUID NOT NULL REFERENCES users(id),
  PRIMARY KEY (user_id, muted_id)
);
CREATE TABLE IF NOT EXISTS user_words (
  user_id UUID NOT NULL REFERENCES users(id),
  kind    TEXT NOT NULL,
  word    TEXT NOT NULL,
  PRIMARY KEY (user_id, kind, word)
);
`

// Seeds the schema plus a few predictable accounts for manual testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	var existing int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&existing); err != nil {
		log.Fatalf("count users: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d users already present. No changes.\n", existing)
		return
	}

	accounts := pg.NewAccountRepo(pool)
	notifications := red.NewNotificationRepo(redisClient)

	seed := []struct {
		Username   string
		Display    string
		AlertWords []string
	}{
		{"sam", "Sam", []string{"karaoke"}},
		{"heidi", "Heidi", []string{"trivia", "karaoke"}},
		{"james", "James", nil},
	}

	ids := map[string]uuid.UUID{}
	for _, s := range seed {
		id := uuid.New()
		if err := accounts.CreateUser(ctx, id, s.Username, s.Display); err != nil {
			log.Fatalf("create user %q: %v", s.Username, err)
		}
		ids[s.Username] = id
		for _, w := range s.AlertWords {
			if err := accounts.AddUserWord(ctx, id, repository.AlertWord, w); err != nil {
				log.Fatalf("add alert word %q: %v", w, err)
			}
			if err := notifications.AddWordWatcher(ctx, w, id); err != nil {
				log.Fatalf("register watcher for %q: %v", w, err)
			}
		}
		fmt.Printf("seeded: %s (id=%s)\n", s.Username, id)
	}

	// sam and james don't get along.
	if err := accounts.AddBlock(ctx, ids["sam"], ids["james"]); err != nil {
		log.Fatalf("seed block: %v", err)
	}

	fmt.Println("Seeding complete.")
}
