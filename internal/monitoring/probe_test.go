package monitoring

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/asticode/go-astits"
	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	"github.com/pokerist/marmaricatv-sub001/internal/httpclient"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mediaManifest = "#EXTM3U\n" +
	"#EXT-X-VERSION:3\n" +
	"#EXT-X-TARGETDURATION:4\n" +
	"#EXT-X-MEDIA-SEQUENCE:7\n" +
	"#EXTINF:4.000,\n" +
	"segment_0007.ts\n" +
	"#EXTINF:4.000,\n" +
	"segment_0008.ts\n"

const multivariantManifest = "#EXTM3U\n" +
	"#EXT-X-VERSION:3\n" +
	"#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720,CODECS=\"avc1.64001f,mp4a.40.2\"\n" +
	"hi/playlist.m3u8\n"

const emptyManifest = "#EXTM3U\n" +
	"#EXT-X-VERSION:3\n" +
	"#EXT-X-TARGETDURATION:4\n"

// Stub ffprobe bodies. The prober only inspects stdout and the exit code.
const (
	ffprobeStreamsJSON = `echo '{"format":{"format_name":"mpegts","nb_streams":2},"streams":[{"index":0,"codec_type":"video","codec_name":"h264"},{"index":1,"codec_type":"audio","codec_name":"aac"}]}'`
	ffprobeEmptyJSON   = `echo '{"format":{"format_name":"mpegts","nb_streams":0},"streams":[]}'`
	ffprobeFailure     = `exit 1`
)

func writeStubFFprobe(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// probeClient builds the probing HTTP client the way the daemon does:
// no retries, the sweep cycle is the retry loop.
func probeClient(t *testing.T) *httpclient.Client {
	t.Helper()
	return httpclient.New(httpclient.Config{
		Timeout: 5 * time.Second,
		Logger:  discardLogger(),
	})
}

func newTestProber(t *testing.T, ffprobeBody string) *Prober {
	t.Helper()
	ffprobe := ffmpeg.NewProber(writeStubFFprobe(t, ffprobeBody)).WithTimeout(3 * time.Second)
	return NewProber(probeClient(t), ffprobe, discardLogger())
}

// muxTSFixture produces a minimal valid transport stream prefix: one PAT
// and one PMT packet with a single H.264 elementary stream.
func muxTSFixture(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	mux := astits.NewMuxer(context.Background(), &buf)
	require.NoError(t, mux.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: 256,
		StreamType:    astits.StreamTypeH264Video,
	}))
	mux.SetPCRPID(256)
	_, err := mux.WriteTables()
	require.NoError(t, err)

	require.GreaterOrEqual(t, buf.Len(), 2*tsPacketSize)
	return buf.Bytes()
}

func nullTSPackets(n int) []byte {
	pkt := make([]byte, tsPacketSize)
	pkt[0] = tsSyncByte
	pkt[1] = 0x1F // null PID
	pkt[2] = 0xFF
	pkt[3] = 0x10
	for i := 4; i < tsPacketSize; i++ {
		pkt[i] = 0xFF
	}
	return bytes.Repeat(pkt, n)
}

func TestLooksLikeManifest(t *testing.T) {
	assert.True(t, looksLikeManifest([]byte(mediaManifest)))
	assert.True(t, looksLikeManifest(append([]byte{0xEF, 0xBB, 0xBF}, []byte("#EXTM3U\n")...)))
	assert.True(t, looksLikeManifest([]byte("\n  #EXTM3U\n")))
	assert.False(t, looksLikeManifest([]byte("<html>not a playlist</html>")))
	assert.False(t, looksLikeManifest(nil))
}

func TestLooksLikeTransportStream(t *testing.T) {
	assert.True(t, looksLikeTransportStream(muxTSFixture(t)))
	assert.True(t, looksLikeTransportStream(nullTSPackets(2)))

	short := nullTSPackets(1)
	assert.False(t, looksLikeTransportStream(short))

	misaligned := nullTSPackets(2)
	misaligned[tsPacketSize] = 0x00
	assert.False(t, looksLikeTransportStream(misaligned))
}

func TestValidateManifest(t *testing.T) {
	assert.NoError(t, validateManifest([]byte(mediaManifest)))
	assert.NoError(t, validateManifest([]byte(multivariantManifest)))
	assert.Error(t, validateManifest([]byte(emptyManifest)))
	assert.Error(t, validateManifest([]byte("#EXTM3U garbage that is not hls")))
}

func TestScanTransportStream(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, scanTransportStream(ctx, muxTSFixture(t)))

	err := scanTransportStream(ctx, nullTSPackets(4))
	assert.ErrorContains(t, err, "no program map")

	garbage := bytes.Repeat([]byte{0xAB}, 400)
	assert.Error(t, scanTransportStream(ctx, garbage))
}

func TestProber_MediaPlaylistAvailable(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		io.WriteString(w, mediaManifest)
	}))
	defer srv.Close()

	// ffprobe stub fails; the fast path must decide alone.
	p := newTestProber(t, ffprobeFailure)
	res := p.Probe(context.Background(), srv.URL+"/live/stream.m3u8")

	assert.True(t, res.Available)
	assert.Equal(t, models.DetectionMethodHLS, res.Method)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Error)
	assert.Equal(t, "bytes=0-262143", gotRange)
}

func TestProber_MultivariantPlaylistAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, multivariantManifest)
	}))
	defer srv.Close()

	p := newTestProber(t, ffprobeFailure)
	res := p.Probe(context.Background(), srv.URL+"/master.m3u8")

	assert.True(t, res.Available)
	assert.Equal(t, models.DetectionMethodHLS, res.Method)
}

func TestProber_TransportStreamAvailable(t *testing.T) {
	fixture := muxTSFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer srv.Close()

	p := newTestProber(t, ffprobeFailure)
	res := p.Probe(context.Background(), srv.URL+"/live/stream.ts")

	assert.True(t, res.Available)
	assert.Equal(t, models.DetectionMethodTS, res.Method)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestProber_HTTPErrorIsDecisive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	// A succeeding ffprobe stub proves the fallback is not consulted.
	p := newTestProber(t, ffprobeStreamsJSON)
	res := p.Probe(context.Background(), srv.URL+"/stream.m3u8")

	assert.False(t, res.Available)
	assert.Equal(t, models.DetectionMethodHTTP, res.Method)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, res.Error, "404")
}

func TestProber_TransportErrorIsDecisive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	p := newTestProber(t, ffprobeStreamsJSON)
	res := p.Probe(context.Background(), deadURL+"/stream.ts")

	assert.False(t, res.Available)
	assert.Equal(t, models.DetectionMethodHTTP, res.Method)
	assert.Zero(t, res.StatusCode)
	assert.NotEmpty(t, res.Error)
}

func TestProber_EmptyManifestFallsBackToFFprobe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, emptyManifest)
	}))
	defer srv.Close()

	p := newTestProber(t, ffprobeStreamsJSON)
	res := p.Probe(context.Background(), srv.URL+"/stream.m3u8")

	assert.True(t, res.Available)
	assert.Equal(t, models.DetectionMethodFFprobe, res.Method)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestProber_UnknownContainerReachableIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0xDE, 0xAD}, 2048))
	}))
	defer srv.Close()

	p := newTestProber(t, ffprobeFailure)
	res := p.Probe(context.Background(), srv.URL+"/stream")

	assert.True(t, res.Available)
	assert.Equal(t, models.DetectionMethodHTTP, res.Method)
}

func TestProber_EmptyBodyFallsBackToFFprobe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestProber(t, ffprobeFailure)
	res := p.Probe(context.Background(), srv.URL+"/stream")

	assert.False(t, res.Available)
	assert.Equal(t, models.DetectionMethodFFprobe, res.Method)
	assert.NotEmpty(t, res.Error)
}

func TestProber_NonHTTPSourceUsesFFprobe(t *testing.T) {
	p := newTestProber(t, ffprobeStreamsJSON)
	res := p.Probe(context.Background(), "udp://239.1.2.3:1234")

	assert.True(t, res.Available)
	assert.Equal(t, models.DetectionMethodFFprobe, res.Method)
	assert.Zero(t, res.StatusCode)
}

func TestProber_FFprobeWithoutStreamsIsUnavailable(t *testing.T) {
	p := newTestProber(t, ffprobeEmptyJSON)
	res := p.Probe(context.Background(), "rtmp://origin.example.com/live")

	assert.False(t, res.Available)
	assert.Equal(t, models.DetectionMethodFFprobe, res.Method)
	assert.Contains(t, res.Error, "no media streams")
}
