package resolve

import (
	"context"

	"github.com/teranos/issuebot/source"
)

type fakeClient struct {
	name  string
	fetch func(ctx context.Context, issueID int) source.Outcome
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Fetch(ctx context.Context, issueID int) source.Outcome {
	return f.fetch(ctx, issueID)
}

func staticClient(name string, out source.Outcome) *fakeClient {
	return &fakeClient{name: name, fetch: func(context.Context, int) source.Outcome { return out }}
}

func trackerOK(title string) source.Outcome {
	return source.Ok(source.TrackerRecord{
		Number: 42,
		Title:  title,
		URL:    "https://github.com/TheWrongAlice/zenhub-slack-bot/issues/42",
		Labels: []string{"bug"},
	})
}

func boardOK(pipeline string, epic bool) source.Outcome {
	return source.Ok(source.BoardRecord{PipelineName: pipeline, IsEpic: epic})
}
