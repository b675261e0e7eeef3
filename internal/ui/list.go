package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tunegraph/internal/tasks"
)

var _ list.Item = jobItem{}

var jobDescriptions = map[tasks.Job]string{
	tasks.JobFriends:   "Friend users from the config file",
	tasks.JobPlaylists: "Playlists friends follow, with their owners",
	tasks.JobSongs:     "Songs on every stored playlist",
	tasks.JobAlbums:    "Album of every stored song",
	tasks.JobArtists:   "Artists credited on every stored album",
	tasks.JobPerforms:  "Artists credited on every stored song",
	tasks.JobGenres:    "Genres of every stored artist",
}

// jobItem is one entry of the job picker. An item without jobs selects the whole pipeline.
type jobItem struct {
	jobs []tasks.Job
}

func (i jobItem) all() bool { return len(i.jobs) != 1 }

func (i jobItem) FilterValue() string { return i.Title() }
func (i jobItem) Title() string {
	if i.all() {
		return "all"
	}
	return i.jobs[0].String()
}
func (i jobItem) Description() string {
	if i.all() {
		return "Every job in dependency order"
	}
	return jobDescriptions[i.jobs[0]]
}

func jobItems() []list.Item {
	items := []list.Item{jobItem{jobs: tasks.Jobs}}
	for _, j := range tasks.Jobs {
		items = append(items, jobItem{jobs: []tasks.Job{j}})
	}
	return items
}
