package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

type ContextKey string

const ActorIDKey ContextKey = "actorID"

const actorSessionKey = "actorID"

// LoadActor gives every browser session a guest actor id. The id identifies
// the tab that holds a match claim; it is not an account.
func LoadActor(sessionManager *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, err := uuid.Parse(sessionManager.GetString(r.Context(), actorSessionKey))
			if err != nil {
				actorID = uuid.New()
				sessionManager.Put(r.Context(), actorSessionKey, actorID.String())
			}

			ctx := context.WithValue(r.Context(), ActorIDKey, actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(ActorIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}
