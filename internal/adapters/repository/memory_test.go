package repository_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchtag/internal/adapters/repository"
	"github.com/okian/matchtag/internal/domain/model"
)

func sampleEvents() []model.Event {
	return []model.Event{
		{ID: "e1", Time: 5, Team: model.TeamRed, Action: model.ActionThrowUp, Outcome: model.OutcomeWon, Validated: true},
		{ID: "e2", Time: 40, Team: model.TeamRed, Action: model.ActionShot, Outcome: model.OutcomeGoal, Validated: true},
		{ID: "e3", Time: 41, Team: model.TeamBlue, Action: model.ActionKickout, Outcome: model.OutcomeWon, AutoGenerated: true, Validated: true},
	}
}

// storeContract runs the behaviour every EventStore must share.
func storeContract(store repository.EventStore, matchID string) {
	ctx := context.Background()

	Convey("Loading an unknown match returns ErrNotFound", func() {
		_, _, err := store.Load(ctx, matchID+"-missing")
		So(err, ShouldEqual, repository.ErrNotFound)
	})

	Convey("A saved list loads back in order with its revision", func() {
		So(store.Save(ctx, matchID, 1, sampleEvents()), ShouldBeNil)
		events, rev, err := store.Load(ctx, matchID)
		So(err, ShouldBeNil)
		So(rev, ShouldEqual, 1)
		So(events, ShouldResemble, sampleEvents())

		Convey("A newer revision replaces the list", func() {
			So(store.Save(ctx, matchID, 2, sampleEvents()[:1]), ShouldBeNil)
			events, rev, err := store.Load(ctx, matchID)
			So(err, ShouldBeNil)
			So(rev, ShouldEqual, 2)
			So(events, ShouldHaveLength, 1)
		})

		Convey("An equal or older revision is refused", func() {
			So(store.Save(ctx, matchID, 1, nil), ShouldEqual, repository.ErrStaleRevision)
			So(store.Save(ctx, matchID, 0, nil), ShouldEqual, repository.ErrStaleRevision)
			events, _, _ := store.Load(ctx, matchID)
			So(events, ShouldHaveLength, 3)
		})

		Convey("Count includes the match", func() {
			So(store.Count(ctx), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})

	Convey("An empty match id is refused", func() {
		So(store.Save(ctx, "", 1, sampleEvents()), ShouldEqual, repository.ErrInvalidMatch)
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a MemoryStore", t, func() {
		store := repository.NewMemoryStore()
		storeContract(store, "match-1")

		Convey("Loaded events are copies", func() {
			ctx := context.Background()
			So(store.Save(ctx, "m", 1, sampleEvents()), ShouldBeNil)
			events, _, _ := store.Load(ctx, "m")
			events[0].Team = model.TeamBlue
			again, _, _ := store.Load(ctx, "m")
			So(again[0].Team, ShouldEqual, model.TeamRed)
		})
	})
}
