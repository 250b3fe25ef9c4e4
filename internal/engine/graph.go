package engine

import "context"

// Graph is the hub's follow graph, derived from stored Follow events.
type Graph struct {
	// FollowList is p of the hub's newest Follow event.
	FollowList []string `json:"followList"`
	// Followers are distinct remote Follow authors, most recently active first.
	Followers []string `json:"followers"`
}

// Graph reads the current follow graph. Safe from any goroutine.
func (e *Engine) Graph(ctx context.Context) (Graph, error) {
	following, err := e.followList(ctx)
	if err != nil {
		return Graph{}, err
	}
	followers, err := e.store.FollowerAuthors(ctx, e.hubID)
	if err != nil {
		return Graph{}, storeError("read followers", "", err)
	}
	return Graph{FollowList: following, Followers: followers}, nil
}

func (e *Engine) followList(ctx context.Context) ([]string, error) {
	latest, found, err := e.store.LatestFollowBy(ctx, e.hubID)
	if err != nil {
		return nil, storeError("read follow list", "", err)
	}
	if !found {
		return []string{}, nil
	}
	return latest.Participants(), nil
}
