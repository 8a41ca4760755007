package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/dkhr/sage-bot/internal/models"
)

//go:embed schema.sql
var schema embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	schemaSQL, err := schema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %v", err)
	}

	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("error executing schema: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, chatID int64) (*models.User, error) {
	query := `
		SELECT chat_id, first_name, user_name, phone_number, registered_at
		FROM users
		WHERE chat_id = $1`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(
		&user.ChatID,
		&user.FirstName,
		&user.UserName,
		&user.PhoneNumber,
		&user.RegisteredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %v", err)
	}

	return user, nil
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (chat_id, first_name, user_name, phone_number, registered_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		user.ChatID,
		user.FirstName,
		user.UserName,
		user.PhoneNumber,
		user.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("error creating user: %v", err)
	}

	return nil
}

func (s *PostgresStorage) UpdateUserPhone(ctx context.Context, chatID int64, phoneNumber string) error {
	query := `
		UPDATE users
		SET phone_number = $1
		WHERE chat_id = $2`

	result, err := s.db.ExecContext(ctx, query, phoneNumber, chatID)
	if err != nil {
		return fmt.Errorf("error updating user phone: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) AppendChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	query := `
		INSERT INTO chat_turns (id, chat_id, user_message, bot_response, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		turn.ID,
		turn.ChatID,
		turn.UserMessage,
		turn.BotResponse,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error appending chat turn: %v", err)
	}

	return nil
}

func (s *PostgresStorage) AppendFileRecord(ctx context.Context, record *models.FileRecord) error {
	query := `
		INSERT INTO file_records (id, chat_id, file_name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ChatID,
		record.FileName,
		record.Description,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error appending file record: %v", err)
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
