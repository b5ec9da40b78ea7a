package session

// Observer receives progress notifications from the session subsystem.
// The subsystem itself never renders anything.
type Observer interface {
	Refreshing()
	RefreshOK()
	RefreshFailed(err error)
	AccessTokenRejected()
	TokenRefreshedRetrying()
}

type nopObserver struct{}

func (nopObserver) Refreshing()             {}
func (nopObserver) RefreshOK()              {}
func (nopObserver) RefreshFailed(_ error)   {}
func (nopObserver) AccessTokenRejected()    {}
func (nopObserver) TokenRefreshedRetrying() {}
