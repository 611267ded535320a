package domain

// Verdict é o resultado do filtro de segurança, calculado por requisição.
type Verdict struct {
	Allowed bool
	Reason  string
}

var Allow = Verdict{Allowed: true}

func Reject(reason string) Verdict { return Verdict{Allowed: false, Reason: reason} }
