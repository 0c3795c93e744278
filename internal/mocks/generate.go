// Package mocks provides gomock implementations of the ports in internal/core.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockSourceRepository(ctrl)
//	repo.EXPECT().GetByID(gomock.Any(), id).Return(src, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/harvester/internal/core JobRepository,JobRepositoryTx,SourceJobLister
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/target/harvester/internal/core ReaperRepository,RunLogPruner
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=source_repository_mock.go github.com/target/harvester/internal/core SourceRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=catalog_repository_mock.go github.com/target/harvester/internal/core PostingRepository,RunLogRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ingest_store_mock.go github.com/target/harvester/internal/core IngestStore,IngestTx,SeenHashCache
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=scheduled_sources_repository_mock.go github.com/target/harvester/internal/core ScheduledSourcesRepository,JobIntrospector
