package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/resource-hub/internal/model"
)

func TestRatingList_NewestFirst(t *testing.T) {
	r := newTestDB(t).Ratings()
	ctx := context.Background()

	add := func(teacher, date string, score int) {
		t.Helper()
		err := r.Create(ctx, &model.Rating{TeacherName: teacher, Subject: "S", Rating: score, Date: date})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	add("Dr. Rajesh Verma", "2025-01-01T10:00:00Z", 4)
	add("Ms. Pooja Sharma", "2025-03-01T10:00:00Z", 5)
	add("Dr. Rajesh Verma", "2025-02-01T10:00:00Z", 2)

	all, err := r.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d, want 3", len(all))
	}
	if all[0].Date != "2025-03-01T10:00:00Z" || all[2].Date != "2025-01-01T10:00:00Z" {
		t.Errorf("List() not sorted newest first: %v, %v, %v", all[0].Date, all[1].Date, all[2].Date)
	}

	verma, err := r.List(ctx, "Dr. Rajesh Verma", 0)
	if err != nil {
		t.Fatalf("List(teacher) error = %v", err)
	}
	if len(verma) != 2 || verma[0].Rating != 2 {
		t.Errorf("List(teacher) = %+v", verma)
	}
}

func TestRatingCreate_RejectsOutOfRange(t *testing.T) {
	r := newTestDB(t).Ratings()

	err := r.Create(context.Background(), &model.Rating{TeacherName: "x", Subject: "y", Rating: 6, Date: "d"})
	if err == nil {
		t.Fatal("Create() accepted rating 6")
	}
}
