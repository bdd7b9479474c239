package importer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"RiderPayroll/internal/constants"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

var (
	// ErrNoMessages - в почтовом ящике нет ни одного письма.
	ErrNoMessages = errors.New("в почтовом ящике нет писем")
	// ErrNoAttachment - в последнем письме не нашлось вложения-ведомости.
	ErrNoAttachment = errors.New("вложение .xlsx в письме не найдено")
)

// MailboxConfig - параметры подключения к почтовому ящику с ведомостями.
type MailboxConfig struct {
	Addr       string // host:port IMAP-сервера с TLS
	Username   string
	Password   string
	StagingDir string // каталог, куда складываются полученные вложения
}

// MailboxFetcher забирает последнюю присланную ведомость из почтового ящика по IMAP.
// MailboxFetcher pulls the most recently received payment sheet from an IMAP mailbox.
type MailboxFetcher struct {
	cfg MailboxConfig
}

// NewMailboxFetcher создает фетчер вложений поверх IMAP-ящика.
func NewMailboxFetcher(cfg MailboxConfig) *MailboxFetcher {
	return &MailboxFetcher{cfg: cfg}
}

// FetchLatest подключается к ящику, берет самое свежее письмо, находит в нем первое
// вложение .xlsx и сохраняет его в каталог выгрузки. Возвращает имя файла из письма
// и путь к сохраненной копии. Сохраненный файл остается на диске: его судьбу решает
// политика очистки оркестратора.
// FetchLatest connects to the mailbox, takes the newest message, finds its first
// .xlsx attachment and stages it on disk. Returns the original filename and the
// staged path. The staged file stays on disk; the orchestrator's cleanup policy
// decides its fate.
func (f *MailboxFetcher) FetchLatest(ctx context.Context) (string, string, error) {
	dialer := &tls.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", f.cfg.Addr)
	if err != nil {
		return "", "", fmt.Errorf("не удалось подключиться к почтовому серверу %s: %w", f.cfg.Addr, err)
	}

	client := imapclient.New(conn, nil)
	defer client.Close()

	if err := client.Login(f.cfg.Username, f.cfg.Password).Wait(); err != nil {
		return "", "", fmt.Errorf("не удалось войти в почтовый ящик: %w", err)
	}

	mbox, err := client.Select("INBOX", nil).Wait()
	if err != nil {
		return "", "", fmt.Errorf("не удалось открыть INBOX: %w", err)
	}
	if mbox.NumMessages == 0 {
		return "", "", ErrNoMessages
	}
	log.Printf("FetchLatest: в ящике %d писем, читаем последнее", mbox.NumMessages)

	// Самое свежее письмо имеет наибольший порядковый номер.
	seqSet := imap.SeqSetNum(mbox.NumMessages)
	bodySection := &imap.FetchItemBodySection{}
	fetchOptions := &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}
	messages, err := client.Fetch(seqSet, fetchOptions).Collect()
	if err != nil {
		return "", "", fmt.Errorf("не удалось получить письмо: %w", err)
	}
	if len(messages) == 0 {
		return "", "", fmt.Errorf("сервер не вернул письмо с номером %d", mbox.NumMessages)
	}
	raw := messages[0].FindBodySection(bodySection)
	if len(raw) == 0 {
		return "", "", fmt.Errorf("сервер вернул пустое тело письма")
	}

	if err := client.Logout().Wait(); err != nil {
		log.Printf("FetchLatest: ошибка выхода из ящика: %v", err)
	}

	filename, data, err := selectAttachment(raw)
	if err != nil {
		return "", "", err
	}
	log.Printf("FetchLatest: найдено вложение %s (%d байт)", filename, len(data))

	stagedPath, err := f.stageAttachment(filename, data)
	if err != nil {
		return "", "", err
	}
	log.Printf("FetchLatest: вложение сохранено в %s", stagedPath)
	return filepath.Base(filename), stagedPath, nil
}

// selectAttachment разбирает сырое письмо и возвращает первое вложение-ведомость.
// Контейнерные и встроенные части письма пропускаются: интересуют только части
// с content-disposition вложения и именем файла .xlsx.
func selectAttachment(raw []byte) (string, []byte, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("не удалось разобрать письмо: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("не удалось прочитать часть письма: %w", err)
		}

		attachment, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := attachment.Filename()
		if err != nil || filename == "" {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(filename), constants.SpreadsheetExt) {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", nil, fmt.Errorf("не удалось прочитать вложение %s: %w", filename, err)
		}
		return filename, data, nil
	}
	return "", nil, ErrNoAttachment
}

// stageAttachment атомарно сохраняет вложение в каталог выгрузки: сначала во
// временный файл, затем переименование. Имя файла из письма обрезается до базового,
// чтобы не выйти за пределы каталога.
func (f *MailboxFetcher) stageAttachment(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(f.cfg.StagingDir, 0o755); err != nil {
		return "", fmt.Errorf("не удалось создать каталог выгрузки %s: %w", f.cfg.StagingDir, err)
	}

	stagedPath := filepath.Join(f.cfg.StagingDir, filepath.Base(filename))
	tmpPath := stagedPath + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", fmt.Errorf("не удалось записать вложение во временный файл: %w", err)
	}
	if err := os.Rename(tmpPath, stagedPath); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			log.Printf("stageAttachment: не удалось убрать временный файл %s: %v", tmpPath, rmErr)
		}
		return "", fmt.Errorf("не удалось сохранить вложение %s: %w", stagedPath, err)
	}
	return stagedPath, nil
}
