package domain

// Principal is the normalized identity snapshot decoded from a session token.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// VerdictKind is the tri-state outcome of request validation.
type VerdictKind string

const (
	VerdictAnonymous  VerdictKind = "anonymous"
	VerdictForbidden  VerdictKind = "forbidden"
	VerdictAuthorized VerdictKind = "authorized"
)

// Verdict is the only value resource handlers branch on. Principal is set
// only when Kind is VerdictAuthorized.
type Verdict struct {
	Kind      VerdictKind
	Principal *Principal
}

func Anonymous() Verdict { return Verdict{Kind: VerdictAnonymous} }

func Forbidden() Verdict { return Verdict{Kind: VerdictForbidden} }

func Authorized(p Principal) Verdict {
	return Verdict{Kind: VerdictAuthorized, Principal: &p}
}

func (v Verdict) IsAuthorized() bool { return v.Kind == VerdictAuthorized && v.Principal != nil }
