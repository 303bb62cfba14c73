package store

import (
	"slices"
	"sync"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/domain"
)

// Collection — имя одной из трёх авторитативных коллекций
type Collection string

const (
	Riders    Collection = "riders"
	Services  Collection = "services"
	Customers Collection = "customers"
)

// Observer вызывается синхронно после каждой замены коллекции, в порядке
// регистрации, с именем коллекции и новым срезом данных. Observer НЕ должен
// обращаться к Store: всё нужное уже передано в snap.
type Observer func(col Collection, snap domain.Snapshot)

// Store держит три коллекции в памяти и является единственным
// авторитативным состоянием процесса. Один мьютекс сериализует все мутации:
// замена коллекции наблюдается всеми читателями как один неделимый шаг.
type Store struct {
	mu        sync.Mutex
	riders    []domain.Rider
	services  []domain.Service
	customers []domain.Customer
	observers []Observer
}

func New() *Store {
	return &Store{}
}

// Subscribe регистрирует наблюдателя. Порядок регистрации определяет порядок
// вызова.
func (s *Store) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// ==== Чтение (копии, чтобы вызывающий не алиасил внутреннее состояние) ====

func (s *Store) Riders() []domain.Rider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.riders)
}

func (s *Store) Services() []domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.services)
}

func (s *Store) Customers() []domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.customers)
}

func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Riders:    slices.Clone(s.riders),
		Services:  slices.Clone(s.services),
		Customers: slices.Clone(s.customers),
	}
}

// ==== Замена целиком (частичных патчей нет) ====

func (s *Store) ReplaceRiders(items []domain.Rider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riders = slices.Clone(items)
	s.notifyLocked(Riders)
}

func (s *Store) ReplaceServices(items []domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = slices.Clone(items)
	s.notifyLocked(Services)
}

func (s *Store) ReplaceCustomers(items []domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = slices.Clone(items)
	s.notifyLocked(Customers)
}

// ==== Атомарный read-modify-write ====
// fn получает текущий срез и возвращает новый; второй результат false
// отменяет замену (и нотификацию). Весь шаг выполняется под мьютексом.

func (s *Store) UpdateRiders(fn func([]domain.Rider) ([]domain.Rider, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := fn(slices.Clone(s.riders))
	if !ok {
		return false
	}
	s.riders = next
	s.notifyLocked(Riders)
	return true
}

func (s *Store) UpdateServices(fn func([]domain.Service) ([]domain.Service, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := fn(slices.Clone(s.services))
	if !ok {
		return false
	}
	s.services = next
	s.notifyLocked(Services)
	return true
}

func (s *Store) UpdateCustomers(fn func([]domain.Customer) ([]domain.Customer, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := fn(slices.Clone(s.customers))
	if !ok {
		return false
	}
	s.customers = next
	s.notifyLocked(Customers)
	return true
}

// Seed загружает стартовый срез без нотификаций (начальная загрузка из
// персистентности до того, как движок стал живым).
func (s *Store) Seed(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riders = slices.Clone(snap.Riders)
	s.services = slices.Clone(snap.Services)
	s.customers = slices.Clone(snap.Customers)
}

func (s *Store) notifyLocked(col Collection) {
	snap := s.snapshotLocked()
	for _, obs := range s.observers {
		obs(col, snap)
	}
}
