package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// PostgresRepo implementa a persistência do histórico de cotações em Postgres
// DB: conexão com o banco de dados
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// InsertTick insere um novo tick de cotação na tabela price_history
func (r *PostgresRepo) InsertTick(ctx context.Context, e events.PriceUpdate) error {
	const q = `
		INSERT INTO price_history
		  (symbol, price, source, observed_at)
		VALUES
		  ($1,$2,$3,$4)
	`
	_, err := r.DB.ExecContext(ctx, q,
		e.Symbol, e.Price, e.Source, time.UnixMilli(e.AtUnixMs).UTC(),
	)
	return err
}

// LatestTick lê o tick mais recente de um símbolo; ok=false quando não há histórico
func (r *PostgresRepo) LatestTick(ctx context.Context, symbol string) (events.PriceUpdate, bool, error) {
	const q = `
		SELECT symbol, price, source, observed_at
		FROM price_history
		WHERE symbol = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`
	var e events.PriceUpdate
	var at time.Time
	err := r.DB.QueryRowContext(ctx, q, symbol).Scan(&e.Symbol, &e.Price, &e.Source, &at)
	if err == sql.ErrNoRows {
		return events.PriceUpdate{}, false, nil
	}
	if err != nil {
		return events.PriceUpdate{}, false, err
	}
	e.AtUnixMs = at.UnixMilli()
	return e, true, nil
}
