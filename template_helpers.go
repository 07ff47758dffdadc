package frummy

import "github.com/goliatone/go-router"

// MergeSessionData folds the resolved session into a view context so
// every template can render the signed-in header without each handler
// repeating the lookup.
func MergeSessionData(c router.Context, vc router.ViewContext) router.ViewContext {
	if vc == nil {
		vc = router.ViewContext{}
	}

	session, err := SessionFromRouter(c, DefaultSessionKey)
	if err != nil {
		vc["signed_in"] = false
		return vc
	}

	vc["signed_in"] = true
	vc["current_user"] = map[string]string{
		"id":    session.GetUserID(),
		"email": session.GetEmail(),
	}

	return vc
}
