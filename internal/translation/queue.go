package translation

// job одна уникальная (text, source, target) задача, к которой
// подвешиваются все ожидающие запросы
type job struct {
	key      Key
	priority Priority
	waiters  []chan Result
	queued   bool
}

// jobQueue FIFO внутри каждого уровня, High обслуживается первым
type jobQueue struct {
	tiers [High + 1][]*job
}

func (q *jobQueue) push(j *job) {
	q.tiers[j.priority] = append(q.tiers[j.priority], j)
	j.queued = true
}

func (q *jobQueue) pop() *job {
	for p := High; p >= Low; p-- {
		if len(q.tiers[p]) == 0 {
			continue
		}
		j := q.tiers[p][0]
		q.tiers[p][0] = nil
		q.tiers[p] = q.tiers[p][1:]
		j.queued = false
		return j
	}
	return nil
}

// promote переносит ещё не начатую задачу в более высокий уровень
func (q *jobQueue) promote(j *job, p Priority) bool {
	if !j.queued || p <= j.priority {
		return false
	}
	tier := q.tiers[j.priority]
	for i, cur := range tier {
		if cur == j {
			q.tiers[j.priority] = append(tier[:i], tier[i+1:]...)
			j.priority = p
			q.push(j)
			return true
		}
	}
	return false
}

func (q *jobQueue) len() int {
	n := 0
	for _, t := range q.tiers {
		n += len(t)
	}
	return n
}

func (q *jobQueue) drain() []*job {
	var out []*job
	for j := q.pop(); j != nil; j = q.pop() {
		out = append(out, j)
	}
	return out
}
