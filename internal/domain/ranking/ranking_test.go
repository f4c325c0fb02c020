package ranking_test

import (
	"testing"

	"github.com/okian/poolboard/internal/domain/model"
	"github.com/okian/poolboard/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func scores(lb model.Leaderboard) []int {
	out := make([]int, len(lb))
	for i, p := range lb {
		out[i] = p.Score
	}
	return out
}

func positions(lb model.Leaderboard) []string {
	out := make([]string, len(lb))
	for i, p := range lb {
		out[i] = p.Position.String()
	}
	return out
}

func TestAssign(t *testing.T) {
	Convey("Given unsorted players", t, func() {
		middle := model.Player{Name: "middle", Score: 1100, ID: "m"}
		bottom := model.Player{Name: "bottom", Score: 999, ID: "b"}
		top := model.Player{Name: "top", Score: 1999, ID: "t"}
		in := []model.Player{middle, bottom, top}

		Convey("When ranking them", func() {
			lb := ranking.Assign(in)

			Convey("Then they should be sorted by score descending", func() {
				So(scores(lb), ShouldResemble, []int{1999, 1100, 999})
				So(positions(lb), ShouldResemble, []string{"1", "2", "3"})
			})

			Convey("And the input should be left in place", func() {
				So(in[0].Name, ShouldEqual, "middle")
				So(in[0].Position.IsSet(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a draw in the middle of the table", t, func() {
		in := []model.Player{{Score: 1100}, {Score: 999}, {Score: 999}, {Score: 800}}

		Convey("When ranking them", func() {
			lb := ranking.Assign(in)

			Convey("Then the tied player should get the marker and the counter should not compensate", func() {
				So(scores(lb), ShouldResemble, []int{1100, 999, 999, 800})
				So(positions(lb), ShouldResemble, []string{"1", "2", "-", "4"})
				So(lb[2].Position.IsTie(), ShouldBeTrue)
				So(lb[3].Position.Int(), ShouldEqual, 4)
			})
		})
	})

	Convey("Given tied players in a known input order", t, func() {
		in := []model.Player{
			{Name: "first", Score: 900},
			{Name: "leader", Score: 1000},
			{Name: "second", Score: 900},
			{Name: "third", Score: 900},
		}

		Convey("When ranking them", func() {
			lb := ranking.Assign(in)

			Convey("Then ties should keep their relative input order", func() {
				So(lb[1].Name, ShouldEqual, "first")
				So(lb[2].Name, ShouldEqual, "second")
				So(lb[3].Name, ShouldEqual, "third")
				So(positions(lb), ShouldResemble, []string{"1", "2", "-", "-"})
			})
		})
	})

	Convey("Given a single player", t, func() {
		lb := ranking.Assign([]model.Player{{Score: 10}})

		Convey("Then it should be first", func() {
			So(positions(lb), ShouldResemble, []string{"1"})
		})
	})

	Convey("Given all-distinct scores", t, func() {
		lb := ranking.Assign([]model.Player{{Score: 1}, {Score: 5}, {Score: 3}, {Score: 4}, {Score: 2}})

		Convey("Then positions should be 1..N without markers", func() {
			So(positions(lb), ShouldResemble, []string{"1", "2", "3", "4", "5"})
		})
	})

	Convey("Given no players", t, func() {
		lb := ranking.Assign(nil)

		Convey("Then the leaderboard should be empty", func() {
			So(lb, ShouldBeEmpty)
		})
	})
}
