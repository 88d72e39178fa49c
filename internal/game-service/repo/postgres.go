package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/radieske/btc-guess-platform/internal/game-service/game"
)

var (
	// ErrAlreadyActive indica que o usuário já possui um palpite ativo
	ErrAlreadyActive = errors.New("guess already active")
	// ErrNotFound indica que nenhum palpite ativo corresponde ao usuário/guessId
	ErrNotFound = errors.New("guess not found")
	// ErrConflict indica que a resolução perdeu a corrida: o palpite
	// referenciado acabou de ser resolvido por outra chamada
	ErrConflict = errors.New("guess already resolved")
)

// Postgres implementa a persistência de palpites e pontuação.
// Toda mutação passa por transação; a resolução é o único caminho
// que altera pontuação, e o DELETE condicionado ao guess_id dentro
// da transação é a única proteção contra resolução dupla.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório do jogo
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Create insere o palpite apenas se o usuário ainda não tiver um ativo.
// O ON CONFLICT DO NOTHING fecha a janela entre a checagem do handler e a escrita.
func (p *Postgres) Create(ctx context.Context, g game.Guess, expiresAt time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO active_guesses (user_id, id, direction, start_price, created_at, deadline_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id) DO NOTHING`,
		g.UserID, g.ID, string(g.Direction), g.StartPrice, g.CreatedAt, g.DeadlineAt, expiresAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyActive
	}
	return nil
}

// GetActive retorna o palpite ativo do usuário, ou ErrNotFound
func (p *Postgres) GetActive(ctx context.Context, userID string) (*game.Guess, error) {
	g := game.Guess{UserID: userID}
	var dir string
	err := p.db.QueryRowContext(ctx, `
		SELECT id, direction, start_price, created_at, deadline_at
		FROM active_guesses WHERE user_id=$1`, userID,
	).Scan(&g.ID, &dir, &g.StartPrice, &g.CreatedAt, &g.DeadlineAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.Direction = game.Direction(dir)
	return &g, nil
}

// Resolve liquida o palpite ativo do usuário contra endPrice em uma única
// transação: leitura, DELETE condicionado ao guess_id, upsert da pontuação
// e registro no histórico. Se o DELETE não afetar linha (outra chamada
// resolveu primeiro), a transação inteira aborta e nada de pontuação é aplicado.
func (p *Postgres) Resolve(ctx context.Context, userID, guessID string, endPrice float64) (*game.Resolution, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g := game.Guess{UserID: userID}
	var dir string
	err = tx.QueryRowContext(ctx, `
		SELECT id, direction, start_price, created_at, deadline_at
		FROM active_guesses WHERE user_id=$1`, userID,
	).Scan(&g.ID, &dir, &g.StartPrice, &g.CreatedAt, &g.DeadlineAt)
	if err == sql.ErrNoRows {
		return nil, p.classifyMissing(ctx, tx, userID, guessID)
	}
	if err != nil {
		return nil, err
	}
	g.Direction = game.Direction(dir)

	// guessId defasado: o palpite ativo já é outro
	if g.ID != guessID {
		return nil, p.classifyMissing(ctx, tx, userID, guessID)
	}

	// DELETE condicional: sob concorrência a segunda transação fica
	// bloqueada na linha e, após o commit da primeira, afeta zero linhas
	res, err := tx.ExecContext(ctx,
		`DELETE FROM active_guesses WHERE user_id=$1 AND id=$2`, userID, guessID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrConflict
	}

	correct := game.Outcome(g.Direction, g.StartPrice, endPrice)
	delta := game.Delta(correct)
	resolvedAt := time.Now().UnixMilli()

	var score int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_scores (user_id, score, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
		  score = user_scores.score + $2,
		  updated_at = now()
		RETURNING score`, userID, delta,
	).Scan(&score)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO resolved_guesses
		  (user_id, guess_id, direction, start_price, end_price, correct, delta, created_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		userID, guessID, string(g.Direction), g.StartPrice, endPrice, correct, delta, g.CreatedAt, resolvedAt,
	); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &game.Resolution{
		Guess:      g,
		Correct:    correct,
		Delta:      delta,
		Score:      score,
		EndPrice:   endPrice,
		ResolvedAt: resolvedAt,
	}, nil
}

// classifyMissing distingue "palpite nunca existiu/expirou" de
// "este guessId acabou de ser resolvido", para o cliente não contar ponto duas vezes
func (p *Postgres) classifyMissing(ctx context.Context, tx *sql.Tx, userID, guessID string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM resolved_guesses WHERE user_id=$1 AND guess_id=$2`, userID, guessID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// GetOrCreateScore retorna a pontuação do usuário, criando a linha com zero
// na primeira consulta. Corrida de criação dupla é resolvida relendo.
func (p *Postgres) GetOrCreateScore(ctx context.Context, userID string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var score int64
	err = tx.QueryRowContext(ctx, `SELECT score FROM user_scores WHERE user_id=$1`, userID).Scan(&score)
	if err == sql.ErrNoRows {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO user_scores (user_id, score, created_at, updated_at)
			VALUES ($1, 0, now(), now())
			ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return 0, err
		}
		if err = tx.QueryRowContext(ctx, `SELECT score FROM user_scores WHERE user_id=$1`, userID).Scan(&score); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return score, nil
}

// History retorna as resoluções mais recentes do usuário
func (p *Postgres) History(ctx context.Context, userID string, limit int) ([]game.Resolution, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT guess_id, direction, start_price, end_price, correct, delta, created_at, resolved_at
		FROM resolved_guesses
		WHERE user_id=$1
		ORDER BY resolved_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Resolution
	for rows.Next() {
		r := game.Resolution{Guess: game.Guess{UserID: userID}}
		var dir string
		if err := rows.Scan(&r.Guess.ID, &dir, &r.Guess.StartPrice, &r.EndPrice,
			&r.Correct, &r.Delta, &r.Guess.CreatedAt, &r.ResolvedAt); err != nil {
			return nil, err
		}
		r.Guess.Direction = game.Direction(dir)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteExpired remove palpites cujo marcador de expiração já passou.
// Usado pelo guess-sweeper; substitui o TTL automático do storage original.
func (p *Postgres) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM active_guesses WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
