package worker

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sekolahpay/canteen-ledger/pkg/logger"
)

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager distributes jobs published with Enqueue over a fixed pool of
// goroutines. Workers never exit on their own; Exit() signals them via
// SIGTERM without closing the externally shared job channel.
type WorkerManager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	sigTerm        chan os.Signal
	do             WorkerHandler
	waiter         *sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	// buffered so each worker can receive one signal even if they arrive
	// before the workers start
	sigChan := make(chan os.Signal, numberOfWorkers)
	signal.Notify(sigChan, syscall.SIGTERM)

	return &WorkerManager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		sigTerm:        sigChan,
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	if w.jobChannel == nil {
		return 0
	}
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) JobEvents() chan interface{} {
	return w.jobChannel
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue publishes a job onto the channel
func (w *WorkerManager) Enqueue(val interface{}) {
	w.jobChannel <- val
}

// Start spins up the worker goroutines
func (w *WorkerManager) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case <-w.sigTerm:
					logger.Info("[worker] sigterm received, exiting", "worker", index)
					return
				case job := <-w.jobChannel:
					w.do(index, job)
				}
			}
		}(i)
	}
	return nil
}

// Exit signals every worker to stop after its current job and waits for them.
func (w *WorkerManager) Exit() {
	for i := 0; i < w.numberOfWorker; i++ {
		w.sigTerm <- syscall.SIGTERM
	}
	w.waiter.Wait()
}
