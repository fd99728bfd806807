// internal/scoring/submit/submitter_test.go
package submit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scoring/internal/common/logger"
	"talent-scoring/internal/scoring/ledger"
	"talent-scoring/internal/scoring/provider"
	"talent-scoring/internal/scoring/talent"
)

type fakeService struct {
	sessions     int
	uploads      map[string][]string
	triggered    []string
	createErr    error
	uploadErrFor map[string]error
	triggerErr   error
	createReqs   []*provider.CreateSessionRequest
}

func newFakeService() *fakeService {
	return &fakeService{
		uploads:      make(map[string][]string),
		uploadErrFor: make(map[string]error),
	}
}

func (f *fakeService) CreateSession(_ context.Context, req *provider.CreateSessionRequest) (*provider.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.sessions++
	f.createReqs = append(f.createReqs, req)
	return &provider.Session{ID: fmt.Sprintf("sess-%d", f.sessions)}, nil
}

func (f *fakeService) UploadDocument(_ context.Context, sessionID, fileName string, _ []byte) error {
	if err, ok := f.uploadErrFor[fileName]; ok {
		return err
	}
	f.uploads[sessionID] = append(f.uploads[sessionID], fileName)
	return nil
}

func (f *fakeService) TriggerScoring(_ context.Context, sessionID string) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered = append(f.triggered, sessionID)
	return nil
}

type fakeSubjects struct {
	eligible []talent.Talent
	docs     map[string][]talent.EvidenceDocument
	docsErr  error
}

func (f *fakeSubjects) EligibleForScoring(_ context.Context, limit int) ([]talent.Talent, error) {
	if len(f.eligible) > limit {
		return f.eligible[:limit], nil
	}
	return f.eligible, nil
}

func (f *fakeSubjects) EvidenceDocuments(_ context.Context, talentID string) ([]talent.EvidenceDocument, error) {
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	return f.docs[talentID], nil
}

type fakeJobs struct {
	inserted  []string
	insertErr error
}

func (f *fakeJobs) InsertPending(_ context.Context, talentID, sessionID string) (*ledger.Job, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, talentID)
	return &ledger.Job{ID: "job-" + talentID, TalentID: talentID, SessionID: sessionID, Status: ledger.StatusPending}, nil
}

type fakeLease struct {
	denied   map[string]bool
	acquired []string
	released []string
}

func newFakeLease() *fakeLease {
	return &fakeLease{denied: make(map[string]bool)}
}

func (f *fakeLease) Acquire(_ context.Context, talentID string) (bool, error) {
	if f.denied[talentID] {
		return false, nil
	}
	f.acquired = append(f.acquired, talentID)
	return true, nil
}

func (f *fakeLease) Release(_ context.Context, talentID string) {
	f.released = append(f.released, talentID)
}

type fakeFetcher struct {
	errFor  map[string]error
	fetched []string
}

func (f *fakeFetcher) FetchBytes(_ context.Context, url string) ([]byte, error) {
	if err, ok := f.errFor[url]; ok {
		return nil, err
	}
	f.fetched = append(f.fetched, url)
	return []byte("pdf-bytes"), nil
}

func subjectWithDocs(id, name string, docNames ...string) (talent.Talent, []talent.EvidenceDocument) {
	docs := make([]talent.EvidenceDocument, 0, len(docNames))
	for i, n := range docNames {
		docs = append(docs, talent.EvidenceDocument{
			ID:       fmt.Sprintf("%s-doc-%d", id, i),
			TalentID: id,
			FileURL:  fmt.Sprintf("https://docs.example.com/%s/%s", id, n),
			FileName: n,
			FileType: "application/pdf",
		})
	}
	return talent.Talent{ID: id, FullName: name}, docs
}

func newSubmitter(svc scoringService, subjects subjectStore, jobs jobLedger, lease submissionLease, fetcher documentFetcher) *Submitter {
	s := New(svc, subjects, jobs, lease, fetcher, logger.NewNoOpLogger(),
		3, 0, 0, "extraordinary-ability", "evidence-bundle")
	s.sleep = func(time.Duration) {}
	return s
}

func TestSubmitter_QueuesSubject(t *testing.T) {
	subj, docs := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf", "press.pdf")
	svc := newFakeService()
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{"talent-1": docs}}
	jobs := &fakeJobs{}
	lease := newFakeLease()

	s := newSubmitter(svc, subjects, jobs, lease, &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	require.Len(t, svc.createReqs, 1)
	assert.Equal(t, "extraordinary-ability", svc.createReqs[0].EvaluationType)
	assert.Equal(t, "evidence-bundle", svc.createReqs[0].BundleType)
	assert.Equal(t, "Ada Lovelace", svc.createReqs[0].SubjectName)

	assert.Equal(t, []string{"award.pdf", "press.pdf"}, svc.uploads["sess-1"])
	assert.Equal(t, []string{"sess-1"}, svc.triggered)
	assert.Equal(t, []string{"talent-1"}, jobs.inserted)
	assert.Equal(t, []string{"talent-1"}, lease.released)
}

func TestSubmitter_LeaseHeldSkips(t *testing.T) {
	subj, docs := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf")
	svc := newFakeService()
	lease := newFakeLease()
	lease.denied["talent-1"] = true
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{"talent-1": docs}}

	s := newSubmitter(svc, subjects, &fakeJobs{}, lease, &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, svc.sessions)
}

func TestSubmitter_NoEvidenceSkips(t *testing.T) {
	subj := talent.Talent{ID: "talent-1", FullName: "Ada Lovelace"}
	svc := newFakeService()
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{}}

	s := newSubmitter(svc, subjects, &fakeJobs{}, newFakeLease(), &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, svc.sessions)
}

func TestSubmitter_PartialUploadFailureStillQueues(t *testing.T) {
	subj, docs := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf", "press.pdf")
	svc := newFakeService()
	svc.uploadErrFor["press.pdf"] = &provider.Error{Kind: provider.KindTransport, Op: "upload-document", Message: "timeout"}
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{"talent-1": docs}}
	jobs := &fakeJobs{}

	s := newSubmitter(svc, subjects, jobs, newFakeLease(), &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, []string{"award.pdf"}, svc.uploads["sess-1"])
	assert.Len(t, jobs.inserted, 1)
}

func TestSubmitter_AllUploadsFailedAbandonsSession(t *testing.T) {
	subj, docs := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf")
	svc := newFakeService()
	fetcher := &fakeFetcher{errFor: map[string]error{
		docs[0].FileURL: errors.New("storage unreachable"),
	}}
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{"talent-1": docs}}
	jobs := &fakeJobs{}

	s := newSubmitter(svc, subjects, jobs, newFakeLease(), fetcher)
	result := s.Run(context.Background())

	assert.Equal(t, 0, result.Queued)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "DOCUMENT_TRANSFER_FAILED")
	assert.Contains(t, result.Errors[0], "abandoned")
	assert.Empty(t, svc.triggered)
	assert.Empty(t, jobs.inserted)
}

func TestSubmitter_DuplicatePendingIsSkip(t *testing.T) {
	subj, docs := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf")
	svc := newFakeService()
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{"talent-1": docs}}
	jobs := &fakeJobs{insertErr: fmt.Errorf("%w: talent talent-1", ledger.ErrDuplicatePending)}

	s := newSubmitter(svc, subjects, jobs, newFakeLease(), &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 0, result.Queued)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Errors)
}

func TestSubmitter_LedgerWriteFailureIsError(t *testing.T) {
	subj, docs := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf")
	svc := newFakeService()
	subjects := &fakeSubjects{eligible: []talent.Talent{subj}, docs: map[string][]talent.EvidenceDocument{"talent-1": docs}}
	jobs := &fakeJobs{insertErr: errors.New("connection refused")}

	s := newSubmitter(svc, subjects, jobs, newFakeLease(), &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 0, result.Queued)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "LEDGER_WRITE_FAILED")
}

func TestSubmitter_OneBadSubjectDoesNotAbortBatch(t *testing.T) {
	subj1, docs1 := subjectWithDocs("talent-1", "Ada Lovelace", "award.pdf")
	subj2, docs2 := subjectWithDocs("talent-2", "Alan Turing", "press.pdf")
	svc := newFakeService()
	fetcher := &fakeFetcher{errFor: map[string]error{
		docs1[0].FileURL: errors.New("storage unreachable"),
	}}
	subjects := &fakeSubjects{
		eligible: []talent.Talent{subj1, subj2},
		docs: map[string][]talent.EvidenceDocument{
			"talent-1": docs1,
			"talent-2": docs2,
		},
	}
	jobs := &fakeJobs{}

	s := newSubmitter(svc, subjects, jobs, newFakeLease(), fetcher)
	result := s.Run(context.Background())

	assert.Equal(t, 1, result.Queued)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, []string{"talent-2"}, jobs.inserted)
}

func TestSubmitter_BatchCapRespected(t *testing.T) {
	var eligible []talent.Talent
	docs := make(map[string][]talent.EvidenceDocument)
	for i := 1; i <= 5; i++ {
		subj, d := subjectWithDocs(fmt.Sprintf("talent-%d", i), fmt.Sprintf("Subject %d", i), "a.pdf")
		eligible = append(eligible, subj)
		docs[subj.ID] = d
	}
	svc := newFakeService()
	subjects := &fakeSubjects{eligible: eligible, docs: docs}
	jobs := &fakeJobs{}

	s := newSubmitter(svc, subjects, jobs, newFakeLease(), &fakeFetcher{})
	result := s.Run(context.Background())

	assert.Equal(t, 3, result.Queued)
	assert.Len(t, jobs.inserted, 3)
}

func TestSubmitter_DelaysBetweenSubjectsAndUploads(t *testing.T) {
	subj1, docs1 := subjectWithDocs("talent-1", "Ada Lovelace", "a.pdf", "b.pdf")
	subj2, docs2 := subjectWithDocs("talent-2", "Alan Turing", "c.pdf")
	svc := newFakeService()
	subjects := &fakeSubjects{
		eligible: []talent.Talent{subj1, subj2},
		docs:     map[string][]talent.EvidenceDocument{"talent-1": docs1, "talent-2": docs2},
	}

	var slept []time.Duration
	s := New(svc, subjects, &fakeJobs{}, newFakeLease(), &fakeFetcher{}, logger.NewNoOpLogger(),
		3, 300*time.Millisecond, time.Second, "extraordinary-ability", "evidence-bundle")
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	s.Run(context.Background())

	// One upload delay inside subject one, one submit delay before subject two.
	assert.Equal(t, []time.Duration{300 * time.Millisecond, time.Second}, slept)
}
