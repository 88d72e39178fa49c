package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// ReadRepo concentra as consultas de leitura sobre o histórico de cotações
type ReadRepo struct {
	DB *sql.DB
}

// ListTicks retorna os ticks mais recentes de um símbolo, do mais novo para o mais antigo
func (r *ReadRepo) ListTicks(ctx context.Context, symbol string, limit int) ([]events.PriceUpdate, error) {
	const q = `
		SELECT symbol, price, source, observed_at
		FROM price_history
		WHERE symbol = $1
		ORDER BY observed_at DESC
		LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []events.PriceUpdate
	for rows.Next() {
		var e events.PriceUpdate
		var at time.Time
		if err := rows.Scan(&e.Symbol, &e.Price, &e.Source, &at); err != nil {
			return nil, err
		}
		e.AtUnixMs = at.UnixMilli()
		out = append(out, e)
	}
	return out, rows.Err()
}
