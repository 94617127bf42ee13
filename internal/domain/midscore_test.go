package domain

import "testing"

func TestMidScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []BureauScore
		want   *int
	}{
		{
			name: "median of three distinct bureau scores",
			scores: []BureauScore{
				{Bureau: BureauEquifax, Score: 710},
				{Bureau: BureauExperian, Score: 680},
				{Bureau: BureauTransUnion, Score: 725},
			},
			want: ptrInt(710),
		},
		{
			name: "already sorted input",
			scores: []BureauScore{
				{Bureau: BureauEquifax, Score: 689},
				{Bureau: BureauExperian, Score: 702},
				{Bureau: BureauTransUnion, Score: 745},
			},
			want: ptrInt(702),
		},
		{
			name: "identical scores",
			scores: []BureauScore{
				{Bureau: BureauEquifax, Score: 700},
				{Bureau: BureauExperian, Score: 700},
				{Bureau: BureauTransUnion, Score: 700},
			},
			want: ptrInt(700),
		},
		{
			name:   "no scores",
			scores: nil,
			want:   nil,
		},
		{
			name: "two scores is not enough",
			scores: []BureauScore{
				{Bureau: BureauEquifax, Score: 710},
				{Bureau: BureauExperian, Score: 680},
			},
			want: nil,
		},
		{
			name: "duplicate bureau does not count as tri-merge",
			scores: []BureauScore{
				{Bureau: BureauEquifax, Score: 710},
				{Bureau: BureauEquifax, Score: 680},
				{Bureau: BureauTransUnion, Score: 725},
			},
			want: nil,
		},
		{
			name: "four entries is not a clean tri-merge",
			scores: []BureauScore{
				{Bureau: BureauEquifax, Score: 710},
				{Bureau: BureauExperian, Score: 680},
				{Bureau: BureauTransUnion, Score: 725},
				{Bureau: BureauTransUnion, Score: 730},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MidScore(tt.scores)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil mid score, got %d", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected mid score %d, got nil", *tt.want)
			}
			if *got != *tt.want {
				t.Fatalf("expected mid score %d, got %d", *tt.want, *got)
			}
		})
	}
}

func TestMidScoreDoesNotMutateInput(t *testing.T) {
	scores := []BureauScore{
		{Bureau: BureauEquifax, Score: 725},
		{Bureau: BureauExperian, Score: 680},
		{Bureau: BureauTransUnion, Score: 710},
	}

	if got := MidScore(scores); got == nil || *got != 710 {
		t.Fatalf("expected mid score 710, got %v", got)
	}
	if scores[0].Score != 725 || scores[1].Score != 680 || scores[2].Score != 710 {
		t.Fatalf("input slice order changed: %+v", scores)
	}
}

func ptrInt(v int) *int {
	return &v
}
