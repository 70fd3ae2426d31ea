package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldCounts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		line      string
		want      int
		username  string
		password  string
		twofa     string
	}{
		{name: "two fields", line: "alice,pw1", want: 1, username: "alice", password: "pw1"},
		{name: "three fields", line: "bob,pw2,123456", want: 1, username: "bob", password: "pw2", twofa: "123456"},
		{name: "extra commas stay in twofa", line: "carl,pw3,a,b", want: 1, username: "carl", password: "pw3", twofa: "a,b"},
		{name: "one field", line: "aliceonly", want: 0},
		{name: "blank", line: "   ", want: 0},
		{name: "comment line", line: "# alice,pw1", want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			require.Len(t, got, tt.want)
			if tt.want == 0 {
				return
			}
			assert.Equal(t, tt.username, got[0].Username)
			assert.Equal(t, tt.password, got[0].Password)
			assert.Equal(t, tt.twofa, got[0].TwoFA)
		})
	}
}

func TestParseDropsMalformedLinesSilently(t *testing.T) {
	t.Parallel()
	input := "alice,pw1\naliceonly\nbob,pw2,123456\n\n# skip,me\n"
	got := Parse(input)

	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "bob", got[1].Username)
	for _, acc := range got {
		assert.NotEqual(t, "aliceonly", acc.Username)
	}
}

func TestParsePreservesOrder(t *testing.T) {
	t.Parallel()
	got := Parse("c,1\na,2\nb,3")
	require.Len(t, got, 3)
	assert.Equal(t, []string{got[0].Username, got[1].Username, got[2].Username}, []string{"c", "a", "b"})
}

func TestParseComments(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Nice!", "Cool!"}, ParseComments("Nice!\n\n  Cool!  \n"))
	assert.Nil(t, ParseComments("\n  \n"))
}
