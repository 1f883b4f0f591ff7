package tasks

import (
	"testing"

	"github.com/dropDatabas3/comfygate/internal/runninghub"
)

func TestArtifactResult(t *testing.T) {
	cases := []struct {
		name string
		art  runninghub.Artifact
		want string
	}{
		{"archived png", runninghub.Artifact{FileURL: "http://x/a.png", FileType: "png", LocalPath: "/data/1/a.png"}, "stored"},
		{"failed png download", runninghub.Artifact{FileURL: "http://x/a.png", FileType: "png"}, "failed"},
		{"mp4 pass-through", runninghub.Artifact{FileURL: "http://x/a.mp4", FileType: "mp4"}, "skipped"},
		{"empty url", runninghub.Artifact{FileType: "png"}, "skipped"},
		{"uppercase type stored", runninghub.Artifact{FileURL: "http://x/a.PNG", FileType: "PNG", LocalPath: "/data/1/a.png"}, "stored"},
		{"uppercase type failed", runninghub.Artifact{FileURL: "http://x/a.PNG", FileType: "PNG"}, "failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := artifactResult(tc.art); got != tc.want {
				t.Errorf("artifactResult(%+v) = %q, want %q", tc.art, got, tc.want)
			}
		})
	}
}
