package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS notifications CASCADE`,
		`DROP TABLE IF EXISTS reports CASCADE`,
		`DROP TABLE IF EXISTS comments CASCADE`,
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS stories CASCADE`,
		`DROP TABLE IF EXISTS contests CASCADE`,
		`DROP TABLE IF EXISTS user_profiles CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Deadlines are text on purpose: the phase resolver treats an
		// unparsable deadline as an explicit unknown state.
		`CREATE TABLE IF NOT EXISTS contests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR(255) NOT NULL,
			month VARCHAR(20),
			submission_deadline TEXT NOT NULL,
			voting_deadline TEXT NOT NULL,
			finalized_at TIMESTAMP,
			status VARCHAR(50) DEFAULT 'active',
			participants_count INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(50) DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS stories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			contest_id UUID NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			word_count INTEGER DEFAULT 0,
			likes_count INTEGER DEFAULT 0,
			views_count INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(user_id, contest_id)
		)`,

		// One standing vote per user per story; the per-contest budget is
		// enforced in the application against contest_id.
		`CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			contest_id UUID NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(user_id, story_id)
		)`,

		`CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			author_name VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			reporter_id UUID NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			kind VARCHAR(100) NOT NULL,
			payload TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_stories_contest_id ON stories(contest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_user_id ON stories(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_user_contest ON votes(user_id, contest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_story_id ON votes(story_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_story_id ON comments(story_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contests_status ON contests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	query := `
		INSERT INTO contests (title, month, submission_deadline, voting_deadline, status) VALUES
		('August Flash Fiction', 'august', NOW() + INTERVAL '7 days', NOW() + INTERVAL '14 days', 'active'),
		('July Flash Fiction', 'july', NOW() - INTERVAL '30 days', NOW() - INTERVAL '23 days', 'results'),
		('[test] Smoke Contest', 'august', NOW() + INTERVAL '1 day', NOW() + INTERVAL '2 days', 'active')
		ON CONFLICT DO NOTHING
	`

	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to seed contests: %w", err)
	}

	fmt.Println("  Seeded 3 contests")

	return nil
}

func getTableName(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
