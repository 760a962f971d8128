package services

import (
	"context"

	"eventconnect_services/src/models"
)

// ReconcileReport summarises one reconciliation sweep.
type ReconcileReport struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Reconciler repairs friendships left one-sided by an interrupted accept.
type Reconciler struct {
	deps Deps
}

func NewReconciler(deps Deps) *Reconciler {
	return &Reconciler{deps: deps.withDefaults()}
}

// ReconcileFriendships scans accepted requests and writes any missing edge.
// A failure on one request is logged and counted; the sweep continues.
func (r *Reconciler) ReconcileFriendships(ctx context.Context) (ReconcileReport, error) {
	logger := r.deps.logger(ctx, "reconciler", "friendships")
	report := ReconcileReport{}

	snapshot, err := r.deps.Store.Collection(models.FriendRequestsCollection).
		WhereEqualTo("status", string(models.FriendRequestAccepted)).
		Get(ctx)
	if err != nil {
		return report, remote("load accepted requests", err)
	}

	for _, doc := range snapshot.Documents {
		request, err := models.FriendRequestFromDocument(doc.ID, doc.Data)
		if err != nil || request.SenderID == "" || request.ReceiverID == "" {
			logger.WarnContext(ctx, "skipping malformed request", "request_id", doc.ID, "error", err)
			continue
		}
		report.Scanned++

		repaired, err := r.repair(ctx, request)
		if err != nil {
			report.Failed++
			logger.ErrorContext(ctx, "failed to repair friendship", "request_id", request.RequestID, "error", err)
			continue
		}
		report.Repaired += repaired
	}

	logger.InfoContext(ctx, "reconciliation finished",
		"scanned", report.Scanned, "repaired", report.Repaired, "failed", report.Failed)
	return report, nil
}

func (r *Reconciler) repair(ctx context.Context, request models.FriendRequest) (int, error) {
	repaired := 0
	edges := []struct {
		owner  string
		friend models.Friend
	}{
		{owner: request.SenderID, friend: models.Friend{UserID: request.ReceiverID, Email: request.ReceiverEmail}},
		{owner: request.ReceiverID, friend: models.Friend{UserID: request.SenderID, Email: request.SenderEmail}},
	}

	for _, edge := range edges {
		doc := r.deps.friendsOf(edge.owner).Document(edge.friend.UserID)
		snapshot, err := doc.Get(ctx)
		if err != nil {
			return repaired, err
		}
		if snapshot.Exists {
			continue
		}

		edge.friend.Name = r.displayName(ctx, edge.friend)
		if err := doc.Set(ctx, edge.friend.Document()); err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

func (r *Reconciler) displayName(ctx context.Context, friend models.Friend) string {
	snapshot, err := r.deps.users().Document(friend.UserID).Get(ctx)
	if err != nil || !snapshot.Exists {
		return friend.Email
	}
	user, err := models.UserFromDocument(snapshot.ID, snapshot.Data)
	if err != nil || user.DisplayName == "" {
		return friend.Email
	}
	return user.DisplayName
}
