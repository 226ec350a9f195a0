package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

func TestSubmissionEmailRequired(t *testing.T) {
	t.Parallel()

	require.Error(t, Submission(waitlist.Submission{}))
	require.Error(t, Submission(waitlist.Submission{Email: "not-an-email"}))
	require.Error(t, Submission(waitlist.Submission{Email: "a@"}))
	require.NoError(t, Submission(waitlist.Submission{Email: "a@b.com"}))
}

func TestSubmissionEmailLengthBoundary(t *testing.T) {
	t.Parallel()

	// local@domain with total length exactly at the cap.
	domain := "b." + strings.Repeat("c", MaxEmailLen-len("a@b.")-len(".com")) + ".com"
	exact := "a@" + domain
	require.Len(t, exact, MaxEmailLen)
	require.NoError(t, Submission(waitlist.Submission{Email: exact}))

	over := "ab@" + domain
	require.Len(t, over, MaxEmailLen+1)
	require.Error(t, Submission(waitlist.Submission{Email: over}))
}

func TestSubmissionTextCaps(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 3000)
	tooLongUseCase := long[:2049]
	okUseCase := long[:2048]

	sub := waitlist.Submission{Email: "a@b.com", UseCase: &tooLongUseCase}
	require.Error(t, Submission(sub))

	sub.UseCase = &okUseCase
	require.NoError(t, Submission(sub))
}

func TestSubmissionSourceURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.com/launch"},
		{name: "http", url: "http://example.com"},
		{name: "relative", url: "/launch", wantErr: true},
		{name: "javascript", url: "javascript:alert(1)", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			u := tc.url
			err := Submission(waitlist.Submission{Email: "a@b.com", SourceURL: &u})
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSubmissionNumericRanges(t *testing.T) {
	t.Parallel()

	set := func(mutate func(*waitlist.Submission)) waitlist.Submission {
		sub := waitlist.Submission{Email: "a@b.com"}
		mutate(&sub)
		return sub
	}
	n := func(v int) *int { return &v }

	require.NoError(t, Submission(set(func(s *waitlist.Submission) { s.TimezoneOffset = n(840) })))
	require.NoError(t, Submission(set(func(s *waitlist.Submission) { s.TimezoneOffset = n(-840) })))
	require.Error(t, Submission(set(func(s *waitlist.Submission) { s.TimezoneOffset = n(841) })))

	require.NoError(t, Submission(set(func(s *waitlist.Submission) { s.DeviceMemory = n(0) })))
	require.Error(t, Submission(set(func(s *waitlist.Submission) { s.DeviceMemory = n(129) })))

	require.NoError(t, Submission(set(func(s *waitlist.Submission) { s.HardwareConcurrency = n(1) })))
	require.Error(t, Submission(set(func(s *waitlist.Submission) { s.HardwareConcurrency = n(0) })))

	require.NoError(t, Submission(set(func(s *waitlist.Submission) { s.MaxTouchPoints = n(64) })))
	require.Error(t, Submission(set(func(s *waitlist.Submission) { s.MaxTouchPoints = n(65) })))

	require.Error(t, Submission(set(func(s *waitlist.Submission) { s.ScreenWidth = n(-1) })))
	require.Error(t, Submission(set(func(s *waitlist.Submission) { s.ViewportHeight = n(40000) })))
}

func TestSubmissionEnums(t *testing.T) {
	t.Parallel()

	scheme := "dark"
	motion := "reduce"
	sub := waitlist.Submission{Email: "a@b.com", ColorScheme: &scheme, ReducedMotion: &motion}
	require.NoError(t, Submission(sub))

	bad := "sepia"
	sub.ColorScheme = &bad
	require.Error(t, Submission(sub))

	sub.ColorScheme = &scheme
	sub.ReducedMotion = &bad
	require.Error(t, Submission(sub))
}
