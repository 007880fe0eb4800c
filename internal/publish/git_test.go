package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, dir, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{dir, name}, args...))
	return "", r.err
}

func TestCommitMessage(t *testing.T) {
	tests := []struct {
		ids  []string
		want string
	}{
		{[]string{"20201005215809"}, "Automated update for build id 20201005215809."},
		{[]string{"A", "B"}, "Automated update for build ids A and B."},
		{[]string{"A", "B", "C"}, "Automated update for build ids A, B and C."},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CommitMessage(tt.ids))
		})
	}
}

func TestGit_Publish(t *testing.T) {
	runner := &recordingRunner{}
	g := NewGit(GitConfig{RepoDir: "/srv/data", DataFile: "/srv/data/data.json"}, runner, nil)

	require.NoError(t, g.Publish(context.Background(), []string{"A", "B"}, nil))
	assert.Equal(t, [][]string{
		{"/srv/data", "git", "commit", "-m", "Automated update for build ids A and B.", "/srv/data/data.json"},
		{"/srv/data", "git", "push", "--porcelain"},
	}, runner.calls)
}

func TestGit_PublishNothing(t *testing.T) {
	runner := &recordingRunner{}
	g := NewGit(GitConfig{DataFile: "/srv/data/data.json"}, runner, nil)

	require.NoError(t, g.Publish(context.Background(), nil, nil))
	assert.Empty(t, runner.calls)
	assert.Equal(t, "/srv/data", g.repoDir)
}

func TestGit_CommitFailureSkipsPush(t *testing.T) {
	runner := &recordingRunner{err: errors.New("nothing to commit")}
	g := NewGit(GitConfig{RepoDir: "/srv/data", DataFile: "data.json"}, runner, nil)

	err := g.Publish(context.Background(), []string{"A"}, nil)
	require.Error(t, err)
	assert.Len(t, runner.calls, 1)
}
