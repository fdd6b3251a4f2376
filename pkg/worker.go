package dupfind

import (
	"sync"
)

// hashJob asks for one digest. Records all share one inode (or hold a
// single path); only Records[0] is read and the digest applies to all.
type hashJob struct {
	JobID   uint64
	Bucket  int
	Records []FileRecord
}

// hashResult is a finished hashJob. Interrupted results are never merged.
type hashResult struct {
	Job         *hashJob
	Digest      string
	BytesRead   int64
	Err         error
	Interrupted bool
}

// hashFunc computes the digest for a job
type hashFunc func(job *hashJob) (string, int64, error)

// hashManager runs a bounded pool of hash workers. Results are delivered
// on a single channel so the caller can merge them from one goroutine.
type hashManager struct {
	hashJobChan  chan *hashJob
	resultChan   chan *hashResult
	hash         hashFunc
	wg           sync.WaitGroup
	shutdownChan <-chan struct{}
	closed       bool
	closeMutex   sync.Mutex
}

func newHashManager(numWorkers int, hash hashFunc, shutdownChan <-chan struct{}) *hashManager {
	if numWorkers < 1 {
		numWorkers = 1
	}

	manager := &hashManager{
		hashJobChan:  make(chan *hashJob, numWorkers*2),
		resultChan:   make(chan *hashResult, numWorkers*2),
		hash:         hash,
		shutdownChan: shutdownChan,
	}

	for i := 0; i < numWorkers; i++ {
		manager.wg.Add(1)
		go manager.hashWorker()
	}

	// Results close once every worker has exited
	go func() {
		manager.wg.Wait()
		close(manager.resultChan)
	}()

	return manager
}

// Submit queues a job. It returns false once shutdown has been requested;
// no further reads are issued after that.
func (hm *hashManager) Submit(job *hashJob) bool {
	select {
	case <-hm.shutdownChan:
		return false
	default:
	}

	select {
	case hm.hashJobChan <- job:
		return true
	case <-hm.shutdownChan:
		return false
	}
}

// FinishSubmitting signals that no more hash jobs will be submitted
func (hm *hashManager) FinishSubmitting() {
	hm.closeMutex.Lock()
	defer hm.closeMutex.Unlock()

	if !hm.closed {
		close(hm.hashJobChan)
		hm.closed = true
	}
}

// Results returns the channel of finished jobs, closed after the last worker exits
func (hm *hashManager) Results() <-chan *hashResult {
	return hm.resultChan
}

func (hm *hashManager) hashWorker() {
	defer hm.wg.Done()

	for {
		select {
		case job, ok := <-hm.hashJobChan:
			if !ok {
				return
			}

			select {
			case <-hm.shutdownChan:
				return
			default:
			}

			if IsDebugEnabled("hash") {
				VerboseLog(2, "hashing %s (job %d)", job.Records[0].Path, job.JobID)
			}

			digest, n, err := hm.hash(job)
			result := &hashResult{Job: job, Digest: digest, BytesRead: n, Err: err}
			if err != nil && isInterrupt(err) {
				result.Interrupted = true
			}
			hm.resultChan <- result

		case <-hm.shutdownChan:
			return
		}
	}
}
