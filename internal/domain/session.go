package domain

// OAuthStage is a step of the install round trip, used for logging
type OAuthStage int

const (
	StageStart OAuthStage = iota
	StageRedirectedToProvider
	StageCallbackReceived
	StageVerified
	StageTokenExchanged
	StagePersisted
	StageSideEffectsDispatched
	StageDone
	StageRejected
)

var stageNames = [...]string{
	"START",
	"REDIRECTED_TO_PROVIDER",
	"CALLBACK_RECEIVED",
	"VERIFIED",
	"TOKEN_EXCHANGED",
	"PERSISTED",
	"SIDE_EFFECTS_DISPATCHED",
	"DONE",
	"REJECTED",
}

func (s OAuthStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "UNKNOWN"
	}
	return stageNames[s]
}

// AccessGrant is the result of exchanging an authorization code
type AccessGrant struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
