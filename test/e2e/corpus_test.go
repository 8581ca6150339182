package e2e

import "testing"

func TestBuildCorpus(t *testing.T) {
	c := BuildCorpus(60)
	if c.TotalUsers != 60 || len(c.Snapshot.Profiles) != 60 {
		t.Fatalf("users = %d, profiles = %d, want 60", c.TotalUsers, len(c.Snapshot.Profiles))
	}
	if c.TotalQueries == 0 || c.TotalQueries != len(c.TestCases) {
		t.Fatalf("queries = %d, test cases = %d", c.TotalQueries, len(c.TestCases))
	}

	assignmentIDs := map[int64]bool{}
	pairs := map[[2]int64]bool{}
	for _, a := range c.Snapshot.Assignments {
		if assignmentIDs[a.ID] {
			t.Errorf("duplicate assignment id %d", a.ID)
		}
		assignmentIDs[a.ID] = true
		key := [2]int64{a.UserID, a.SkillID}
		if pairs[key] {
			t.Errorf("user %d holds skill %d twice", a.UserID, a.SkillID)
		}
		pairs[key] = true
	}

	for _, tc := range c.TestCases {
		if len(tc.ExpectedUserIDs) == 0 {
			t.Errorf("%s: no holders", tc.Description)
		}
		for _, u := range tc.ExpectedUserIDs {
			if !pairs[[2]int64{u, tc.SkillID}] {
				t.Errorf("%s: user %d is not a holder", tc.Description, u)
			}
		}
	}

	var unnamed, noDept int
	for _, u := range c.Snapshot.Users {
		if u.Name == "" {
			unnamed++
		}
	}
	for _, p := range c.Snapshot.Profiles {
		if p.DepartmentID == nil {
			noDept++
		}
	}
	if unnamed == 0 || noDept == 0 {
		t.Errorf("corpus should include unnamed users (%d) and users without a department (%d)", unnamed, noDept)
	}
}

func TestBuildCorpus_Deterministic(t *testing.T) {
	a, b := BuildCorpus(30), BuildCorpus(30)
	if len(a.Snapshot.Assignments) != len(b.Snapshot.Assignments) {
		t.Fatal("assignment count differs between builds")
	}
	for i := range a.Snapshot.Assignments {
		if *a.Snapshot.Assignments[i] != *b.Snapshot.Assignments[i] {
			t.Fatalf("assignment %d differs", i)
		}
	}
}
