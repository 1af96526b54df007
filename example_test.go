package jobscheduler_test

import (
	"context"
	"errors"
	"fmt"

	jobscheduler "github.com/Swind/go-job-scheduler"
)

type Category int

const (
	Logger Category = iota
	GameObject
)

func Example() {
	scheduler := jobscheduler.NewScheduler(jobscheduler.Descriptors[Category]{
		{Category: Logger, Threads: 1},
		{Category: GameObject, Threads: 4},
	})
	defer scheduler.Close()

	handle := jobscheduler.ScheduleJob(scheduler, GameObject, func(ctx context.Context) (int, error) {
		return 40 + 2, nil
	})
	value, err := handle.Wait()
	fmt.Println(value, err)
	// Output: 42 <nil>
}

func Example_scoped() {
	scheduler := jobscheduler.NewScheduler(jobscheduler.Descriptors[Category]{
		{Category: GameObject, Threads: 4},
	})
	defer scheduler.Close()

	squares := make([]int, 5)
	err := scheduler.Scoped(func(s *jobscheduler.ScopedScheduler[Category]) {
		for i := range squares {
			s.PostTask(GameObject, func(ctx context.Context) {
				squares[i] = i * i
			})
		}
	})
	fmt.Println(squares, err)
	// Output: [0 1 4 9 16] <nil>
}

func Example_panic() {
	scheduler := jobscheduler.NewScheduler(jobscheduler.Descriptors[Category]{
		{Category: GameObject, Threads: 1},
	})
	defer scheduler.Close()

	handle := scheduler.PostTask(GameObject, func(ctx context.Context) {
		panic("bad frame")
	})
	_, err := handle.Wait()

	var panicErr *jobscheduler.PanicError
	fmt.Println(errors.As(err, &panicErr), panicErr.Value)

	_, err = handle.Wait()
	fmt.Println(errors.Is(err, jobscheduler.ErrHandleConsumed))
	// Output:
	// true bad frame
	// true
}
