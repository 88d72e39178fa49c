package gameclient

// Projection é a visão local (otimista) do estado de um usuário,
// chaveada da mesma forma que o modelo do servidor para que estados
// otimistas e confirmados sejam comparáveis estrutura a estrutura.
//
// Todas as transições são funções puras: recebem a projeção por valor
// e devolvem a projeção seguinte.
type Projection struct {
	UserID string
	Active *Guess
	Score  int64

	// ScoreKnown indica se Score já foi confirmado pelo servidor ao
	// menos uma vez; antes disso, deltas otimistas partem de zero
	ScoreKnown bool

	// Stale marca a projeção como não confiável: o chamador deve
	// reconciliar com o servidor antes de confiar nos campos acima
	Stale bool
}

// NewProjection cria uma projeção vazia para um usuário
func NewProjection(userID string) Projection {
	return Projection{UserID: userID}
}

// ApplyGuessPlaced registra um palpite (provisório ou confirmado) como ativo
func (p Projection) ApplyGuessPlaced(g Guess) Projection {
	g.UserID = p.UserID
	p.Active = &g
	return p
}

// ApplyOptimisticResolution aplica localmente o mesmo veredito que o
// servidor aplicará: acerto pelo sentido do movimento, empate de preço
// conta como erro, delta de ±1 ponto. Limpa o palpite ativo e marca a
// projeção como stale: o resultado do servidor é a verdade final e
// deve ser refetchado independente do desfecho otimista.
func (p Projection) ApplyOptimisticResolution(endPrice float64) Projection {
	if p.Active == nil {
		return p
	}
	correct := guessCorrect(p.Active.Direction, p.Active.StartPrice, endPrice)
	if correct {
		p.Score++
	} else {
		p.Score--
	}
	p.Active = nil
	p.Stale = true
	return p
}

// ApplyServerState substitui a projeção pela verdade do servidor
func (p Projection) ApplyServerState(active *Guess, score int64) Projection {
	p.Active = active
	p.Score = score
	p.ScoreKnown = true
	p.Stale = false
	return p
}

// Invalidate descarta a confiança na projeção sem adivinhar o estado
// anterior; o próximo acesso deve reconciliar com o servidor
func (p Projection) Invalidate() Projection {
	p.Stale = true
	return p
}

// guessCorrect espelha a regra de resolução do servidor: "up" acerta
// com alta estrita, "down" com queda estrita, preço igual nunca acerta
func guessCorrect(direction string, startPrice, endPrice float64) bool {
	switch direction {
	case "up":
		return endPrice > startPrice
	case "down":
		return endPrice < startPrice
	default:
		return false
	}
}
