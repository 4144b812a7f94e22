package transcoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

func TestSelectByCodec(t *testing.T) {
	first := &models.TranscodingProfile{Name: "sd-h264", VideoCodec: models.VideoCodecH264}
	second := &models.TranscodingProfile{Name: "sd-h265", VideoCodec: models.VideoCodecH265}
	candidates := []*models.TranscodingProfile{first, second}

	assert.Same(t, second, selectByCodec(candidates, models.VideoCodecH265))
	assert.Same(t, first, selectByCodec(candidates, models.VideoCodecH264))

	// With no codec match the first candidate wins.
	assert.Same(t, first, selectByCodec(candidates, models.VideoCodecCopy))
}

func TestFindFallbackProfile(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	hd := h.seedProfile("hd", models.TierHigh, true)
	h.seedProfile("passthrough", models.TierCopy, false)

	sdH264 := &models.TranscodingProfile{Name: "sd-h264", Tier: models.TierLow, VideoCodec: models.VideoCodecH264}
	require.NoError(t, h.db.Create(sdH264).Error)
	sdH265 := &models.TranscodingProfile{Name: "sd-h265", Tier: models.TierLow, VideoCodec: models.VideoCodecH265}
	require.NoError(t, h.db.Create(sdH265).Error)

	disabled := &models.TranscodingProfile{Name: "hq-archived", Tier: models.TierMedium, Enabled: models.BoolPtr(false)}
	require.NoError(t, h.db.Create(disabled).Error)

	t.Run("skips empty and disabled tiers", func(t *testing.T) {
		// high -> medium has only a disabled profile -> low.
		fb, err := h.sup.findFallbackProfile(h.ctx, hd)
		require.NoError(t, err)
		require.NotNil(t, fb)
		assert.Equal(t, models.TierLow, fb.Tier)
	})

	t.Run("prefers matching video codec", func(t *testing.T) {
		current := &models.TranscodingProfile{Tier: models.TierHigh, VideoCodec: models.VideoCodecH265}
		fb, err := h.sup.findFallbackProfile(h.ctx, current)
		require.NoError(t, err)
		require.NotNil(t, fb)
		assert.Equal(t, "sd-h265", fb.Name)
	})

	t.Run("descends to copy when nothing else matches", func(t *testing.T) {
		current := &models.TranscodingProfile{Tier: models.TierLow, VideoCodec: models.VideoCodecH264}
		fb, err := h.sup.findFallbackProfile(h.ctx, current)
		require.NoError(t, err)
		require.NotNil(t, fb)
		assert.Equal(t, models.TierCopy, fb.Tier)
	})

	t.Run("copy has nowhere lower to go", func(t *testing.T) {
		current := &models.TranscodingProfile{Tier: models.TierCopy, VideoCodec: models.VideoCodecCopy}
		fb, err := h.sup.findFallbackProfile(h.ctx, current)
		require.NoError(t, err)
		assert.Nil(t, fb)
	})
}
