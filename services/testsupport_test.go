package services

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"activation_server/crypto"
	"activation_server/domain"
	"activation_server/dtos/request"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// The state-machine tests run the services against in-memory repositories
// and a no-op transaction runner, so every lifecycle rule is exercised
// without a database.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeActivationRepo struct {
	mu      sync.Mutex
	records map[string]domain.Activation
}

func newFakeActivationRepo() *fakeActivationRepo {
	return &fakeActivationRepo{records: make(map[string]domain.Activation)}
}

func (r *fakeActivationRepo) Create(db *gorm.DB, entity *domain.Activation) (*domain.Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[entity.ActivationId] = *entity
	return entity, nil
}

func (r *fakeActivationRepo) Update(db *gorm.DB, entity *domain.Activation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[entity.ActivationId] = *entity
	return nil
}

func (r *fakeActivationRepo) FindActivation(db *gorm.DB, activationId string) (*domain.Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[activationId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := record
	return &copied, nil
}

func (r *fakeActivationRepo) FindActivationForUpdate(db *gorm.DB, activationId string) (*domain.Activation, error) {
	return r.FindActivation(db, activationId)
}

func (r *fakeActivationRepo) FindByUserId(db *gorm.DB, userId string) ([]domain.Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Activation
	for _, record := range r.records {
		if record.UserId == userId {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeActivationRepo) FindByApplicationIdAndUserId(db *gorm.DB, applicationId uint, userId string) ([]domain.Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Activation
	for _, record := range r.records {
		if record.ApplicationId == applicationId && record.UserId == userId {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeActivationRepo) FindCreatedActivation(db *gorm.DB, applicationId uint, activationCode string, states []domain.ActivationStatus, now time.Time) (*domain.Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ApplicationId != applicationId || record.ActivationCode != activationCode {
			continue
		}
		if !record.TimestampActivationExpire.After(now) {
			continue
		}
		for _, state := range states {
			if record.ActivationStatus == state {
				copied := record
				return &copied, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeApplicationRepo struct {
	mu       sync.Mutex
	nextId   uint
	apps     map[uint]domain.Application
	versions map[uint]domain.ApplicationVersion
	keyPairs []domain.MasterKeyPair
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{
		nextId:   1,
		apps:     make(map[uint]domain.Application),
		versions: make(map[uint]domain.ApplicationVersion),
	}
}

func (r *fakeApplicationRepo) Create(db *gorm.DB, entity *domain.Application) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity.Id = r.nextId
	r.nextId++
	r.apps[entity.Id] = *entity
	return entity, nil
}

func (r *fakeApplicationRepo) List(db *gorm.DB) ([]domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Application
	for _, app := range r.apps {
		out = append(out, app)
	}
	return out, nil
}

func (r *fakeApplicationRepo) GetById(db *gorm.DB, id uint) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := app
	return &copied, nil
}

func (r *fakeApplicationRepo) GetByName(db *gorm.DB, name string) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.Name == name {
			copied := app
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApplicationRepo) CreateVersion(db *gorm.DB, entity *domain.ApplicationVersion) (*domain.ApplicationVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity.Id = r.nextId
	r.nextId++
	r.versions[entity.Id] = *entity
	return entity, nil
}

func (r *fakeApplicationRepo) ListVersions(db *gorm.DB, applicationId uint) ([]domain.ApplicationVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ApplicationVersion
	for _, version := range r.versions {
		if version.ApplicationId == applicationId {
			out = append(out, version)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) GetVersionByApplicationKey(db *gorm.DB, applicationKey string) (*domain.ApplicationVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, version := range r.versions {
		if version.ApplicationKey == applicationKey {
			copied := version
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApplicationRepo) UpdateVersionSupport(db *gorm.DB, versionId uint, supported bool) (*domain.ApplicationVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	version, ok := r.versions[versionId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	version.Supported = supported
	r.versions[versionId] = version
	copied := version
	return &copied, nil
}

func (r *fakeApplicationRepo) CreateMasterKeyPair(db *gorm.DB, entity *domain.MasterKeyPair) (*domain.MasterKeyPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity.Id = r.nextId
	r.nextId++
	r.keyPairs = append(r.keyPairs, *entity)
	return entity, nil
}

func (r *fakeApplicationRepo) FindCurrentMasterKeyPair(db *gorm.DB, applicationId uint) (*domain.MasterKeyPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.MasterKeyPair
	for i := range r.keyPairs {
		kp := &r.keyPairs[i]
		if kp.ApplicationId != applicationId {
			continue
		}
		if latest == nil || kp.TimestampCreated.After(*latest.TimestampCreated) {
			latest = kp
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

type fakeAuditRepo struct {
	mu        sync.Mutex
	history   []domain.ActivationHistory
	signature []domain.SignatureAudit
}

func (r *fakeAuditRepo) CreateSignatureAudit(db *gorm.DB, entity *domain.SignatureAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signature = append(r.signature, *entity)
	return nil
}

func (r *fakeAuditRepo) ListSignatureAudit(db *gorm.DB, userId string, applicationId uint, from, to time.Time) ([]domain.SignatureAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SignatureAudit
	for _, record := range r.signature {
		if record.UserId == userId {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) CreateActivationHistory(db *gorm.DB, entity *domain.ActivationHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *entity)
	return nil
}

func (r *fakeAuditRepo) ListActivationHistory(db *gorm.DB, activationId string, from, to time.Time) ([]domain.ActivationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActivationHistory
	for _, record := range r.history {
		if record.ActivationId == activationId {
			out = append(out, record)
		}
	}
	return out, nil
}

type fakeCallbacks struct {
	mu     sync.Mutex
	events []ActivationChangeEvent
}

func (c *fakeCallbacks) Notify(applicationId uint, activationId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ActivationChangeEvent{ApplicationId: applicationId, ActivationId: activationId})
}

func (c *fakeCallbacks) DroppedEvents() int64 { return 0 }
func (c *fakeCallbacks) Shutdown()            {}

func (c *fakeCallbacks) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type fakeRecoveryRepo struct {
	mu      sync.Mutex
	nextId  uint
	codes   map[uint]domain.RecoveryCode
	configs map[uint]domain.RecoveryConfig
}

func newFakeRecoveryRepo() *fakeRecoveryRepo {
	return &fakeRecoveryRepo{nextId: 1, codes: make(map[uint]domain.RecoveryCode), configs: make(map[uint]domain.RecoveryConfig)}
}

func (r *fakeRecoveryRepo) CreateCode(db *gorm.DB, entity *domain.RecoveryCode) (*domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity.Id = r.nextId
	r.nextId++
	for i := range entity.Puks {
		entity.Puks[i].Id = r.nextId
		r.nextId++
		entity.Puks[i].RecoveryCodeId = entity.Id
	}
	r.codes[entity.Id] = cloneRecoveryCode(entity)
	return entity, nil
}

func cloneRecoveryCode(code *domain.RecoveryCode) domain.RecoveryCode {
	copied := *code
	copied.Puks = append([]domain.RecoveryPuk(nil), code.Puks...)
	return copied
}

func (r *fakeRecoveryRepo) UpdateCode(db *gorm.DB, entity *domain.RecoveryCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.codes[entity.Id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	puks := stored.Puks
	stored = cloneRecoveryCode(entity)
	stored.Puks = puks
	r.codes[entity.Id] = stored
	return nil
}

func (r *fakeRecoveryRepo) UpdatePuk(db *gorm.DB, entity *domain.RecoveryPuk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[entity.RecoveryCodeId]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range code.Puks {
		if code.Puks[i].Id == entity.Id {
			code.Puks[i] = *entity
			r.codes[entity.RecoveryCodeId] = code
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRecoveryRepo) FindCodeForUpdate(db *gorm.DB, applicationId uint, recoveryCode string) (*domain.RecoveryCode, error) {
	return r.FindCodeByValue(db, applicationId, recoveryCode)
}

func (r *fakeRecoveryRepo) FindCodeByValue(db *gorm.DB, applicationId uint, recoveryCode string) (*domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.ApplicationId == applicationId && code.RecoveryCode == recoveryCode {
			copied := cloneRecoveryCode(&code)
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRecoveryRepo) FindCodeById(db *gorm.DB, id uint) (*domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := cloneRecoveryCode(&code)
	return &copied, nil
}

func (r *fakeRecoveryRepo) FindCodesByUser(db *gorm.DB, applicationId uint, userId string) ([]domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RecoveryCode
	for _, code := range r.codes {
		if code.ApplicationId == applicationId && code.UserId == userId {
			out = append(out, cloneRecoveryCode(&code))
		}
	}
	return out, nil
}

func (r *fakeRecoveryRepo) FindCodesByActivation(db *gorm.DB, activationId string) ([]domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RecoveryCode
	for _, code := range r.codes {
		if code.ActivationId != nil && *code.ActivationId == activationId {
			out = append(out, cloneRecoveryCode(&code))
		}
	}
	return out, nil
}

func (r *fakeRecoveryRepo) FindConfig(db *gorm.DB, applicationId uint) (*domain.RecoveryConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[applicationId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := cfg
	return &copied, nil
}

func (r *fakeRecoveryRepo) SaveConfig(db *gorm.DB, entity *domain.RecoveryConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[entity.ApplicationId] = *entity
	return nil
}

// testEnv wires the services against fakes with one application, one
// supported version and one master key pair.
type testEnv struct {
	clock       *fakeClock
	activations *fakeActivationRepo
	apps        *fakeApplicationRepo
	auditRepo   *fakeAuditRepo
	callbacks   *fakeCallbacks
	recovery    *fakeRecoveryRepo

	activationSvc *ActivationService
	signatureSvc  ISignatureService
	recoverySvc   IRecoveryService
	auditSvc      IAuditService

	applicationId     uint
	applicationKey    string
	applicationSecret string
	masterPublicKey   []byte
}

const (
	testAppKey    = "test-app-key"
	testAppSecret = "test-app-secret"
)

func noopTxRunner(fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func decodeBase64(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:       newFakeClock(),
		activations: newFakeActivationRepo(),
		apps:        newFakeApplicationRepo(),
		auditRepo:   &fakeAuditRepo{},
		callbacks:   &fakeCallbacks{},
		recovery:    newFakeRecoveryRepo(),
	}

	now := env.clock.Now()
	app, err := env.apps.Create(nil, &domain.Application{Name: "test-app", CreatedAt: &now})
	require.NoError(t, err)
	env.applicationId = app.Id

	_, err = env.apps.CreateVersion(nil, &domain.ApplicationVersion{
		ApplicationId:     app.Id,
		Name:              "default",
		ApplicationKey:    testAppKey,
		ApplicationSecret: testAppSecret,
		Supported:         true,
	})
	require.NoError(t, err)
	env.applicationKey = testAppKey
	env.applicationSecret = testAppSecret

	masterKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	env.masterPublicKey = crypto.PublicKeyToBytes(masterKP.PublicKey)
	_, err = env.apps.CreateMasterKeyPair(nil, &domain.MasterKeyPair{
		ApplicationId:          app.Id,
		Name:                   "test keypair",
		MasterKeyPublicBase64:  base64.StdEncoding.EncodeToString(crypto.PublicKeyToBytes(masterKP.PublicKey)),
		MasterKeyPrivateBase64: base64.StdEncoding.EncodeToString(crypto.PrivateKeyToBytes(masterKP.PrivateKey)),
		TimestampCreated:       &now,
	})
	require.NoError(t, err)

	keyCodec := crypto.NewServerPrivateKeyCodec(nil)
	env.auditSvc = NewAuditService(nil, noopTxRunner, env.auditRepo, env.clock)

	env.activationSvc = NewActivationService(
		nil, noopTxRunner,
		env.activations, env.apps,
		env.auditSvc, env.callbacks, nil,
		keyCodec, env.clock,
		ActivationConfig{
			IdIterations:      10,
			CodeIterations:    10,
			ValidityMillis:    120000,
			MaxFailedAttempts: 5,
		})

	env.signatureSvc = NewSignatureService(
		nil, noopTxRunner,
		env.activations, env.apps,
		env.auditSvc, env.callbacks, nil,
		keyCodec, env.clock,
		SignatureConfig{ValidationLookahead: 20})

	env.recoverySvc = NewRecoveryService(
		nil, noopTxRunner,
		env.recovery, env.apps, nil,
		env.activationSvc, env.clock,
		RecoveryConfigValues{
			CodeIterations:    10,
			MaxFailedAttempts: 5,
			PuksPerCode:       3,
			MasterKey:         []byte("test-master-key"),
		})

	return env
}

// deviceSession is the client side of one activation: the device key pair
// and the helpers a real mobile client would use.
type deviceSession struct {
	keyPair *crypto.KeyPair
}

func newDeviceSession(t *testing.T) *deviceSession {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return &deviceSession{keyPair: kp}
}

// prepareRequest seals the device public key to the application's master
// public key, the way the mobile client does during activation.
func (d *deviceSession) prepareRequest(t *testing.T, env *testEnv, activationCode string) *request.PrepareActivationRequest {
	t.Helper()
	masterPub, err := crypto.PublicKeyFromBytes(env.masterPublicKey)
	require.NoError(t, err)

	envelope, err := crypto.Encrypt(crypto.PublicKeyToBytes(d.keyPair.PublicKey), masterPub, env.applicationSecret)
	require.NoError(t, err)

	return &request.PrepareActivationRequest{
		ActivationCode:     activationCode,
		ApplicationKey:     env.applicationKey,
		ActivationName:     "test device",
		EphemeralPublicKey: base64.StdEncoding.EncodeToString(envelope.EphemeralPublicKey),
		EncryptedData:      base64.StdEncoding.EncodeToString(append(envelope.IV, envelope.Ciphertext...)),
		Mac:                base64.StdEncoding.EncodeToString(envelope.MAC),
		ProtocolVersion:    3,
	}
}

// signatureKeys derives the device-side factor keys for an activation.
func (d *deviceSession) signatureKeys(t *testing.T, env *testEnv, activationId string) *crypto.SignatureKeys {
	t.Helper()
	record, err := env.activations.FindActivation(nil, activationId)
	require.NoError(t, err)
	serverPubBytes, err := base64.StdEncoding.DecodeString(record.ServerPublicKeyBase64)
	require.NoError(t, err)
	serverPub, err := crypto.PublicKeyFromBytes(serverPubBytes)
	require.NoError(t, err)

	masterSecret, err := crypto.SharedSecret(d.keyPair.PrivateKey, serverPub)
	require.NoError(t, err)
	keys, err := crypto.DeriveSignatureKeys(masterSecret)
	require.NoError(t, err)
	return keys
}

// activate drives a full Init → Prepare → Commit cycle and returns the
// activation ID.
func (d *deviceSession) activate(t *testing.T, env *testEnv, userId string) string {
	t.Helper()
	initResp, err := env.activationSvc.InitActivation(&request.InitActivationRequest{
		ApplicationId: env.applicationId,
		UserId:        userId,
	})
	require.NoError(t, err)

	_, err = env.activationSvc.PrepareActivation(d.prepareRequest(t, env, initResp.ActivationCode))
	require.NoError(t, err)

	_, err = env.activationSvc.CommitActivation(initResp.ActivationId)
	require.NoError(t, err)
	return initResp.ActivationId
}
