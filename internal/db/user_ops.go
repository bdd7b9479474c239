package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"RiderPayroll/internal/constants"
	"RiderPayroll/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь с указанным именем отсутствует.
// ErrUserNotFound is returned when no user with the given username exists.
var ErrUserNotFound = errors.New("пользователь не найден")

// ErrUsernameTaken возвращается при попытке зарегистрировать занятое имя.
// ErrUsernameTaken is returned when registering an already taken username.
var ErrUsernameTaken = errors.New("имя пользователя уже занято")

// CreateUser регистрирует нового пользователя. Пароль должен быть уже захеширован.
// CreateUser registers a new user. The password must already be hashed.
func CreateUser(username, hashedPassword, role string) (models.User, error) {
	var user models.User
	if role == "" {
		role = constants.ROLE_USER
	}

	var exists bool
	err := DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)", username).Scan(&exists)
	if err != nil {
		log.Printf("CreateUser: ошибка проверки существования пользователя '%s': %v", username, err)
		return user, err
	}
	if exists {
		return user, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}

	err = DB.QueryRow(`
        INSERT INTO users (username, password, role, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, username, role, created_at`,
		username, hashedPassword, role).Scan(&user.ID, &user.Username, &user.Role, &user.CreatedAt)
	if err != nil {
		// Гонка двух одновременных регистраций одного имени упирается в
		// уникальный индекс users.username.
		if isUniqueViolation(err) {
			return user, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		log.Printf("CreateUser: ошибка вставки нового пользователя '%s': %v", username, err)
		return user, err
	}
	log.Printf("Зарегистрирован новый пользователь '%s' с ролью '%s'", username, user.Role)
	return user, nil
}

// GetUserByUsername извлекает пользователя по имени. Имя сравнивается строго
// на равенство — это ключ идентичности, а не строка поиска.
// GetUserByUsername retrieves a user by username. The name is compared for
// exact equality — it is an identity key, not a search string.
func GetUserByUsername(username string) (models.User, error) {
	var u models.User
	err := DB.QueryRow(`
        SELECT id, username, password, role, created_at
        FROM users WHERE username=$1`, username).Scan(
		&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		log.Printf("GetUserByUsername: ошибка получения пользователя '%s': %v", username, err)
		return u, err
	}
	return u, nil
}

// GetAllUsers возвращает всех пользователей (без хешей паролей).
// GetAllUsers returns all users (without password hashes).
func GetAllUsers() ([]models.User, error) {
	rows, err := DB.Query(`
        SELECT id, username, role, created_at
        FROM users
        ORDER BY id ASC`)
	if err != nil {
		log.Printf("GetAllUsers: ошибка выполнения запроса: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if errScan := rows.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); errScan != nil {
			log.Printf("GetAllUsers: ошибка сканирования строки: %v", errScan)
			continue
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		log.Printf("GetAllUsers: ошибка после итерации по строкам: %v", err)
		return nil, err
	}
	return users, nil
}

// UpdateUserPassword обновляет хеш пароля пользователя.
// UpdateUserPassword updates the user's password hash.
func UpdateUserPassword(username, hashedPassword string) error {
	res, err := DB.Exec("UPDATE users SET password=$1 WHERE username=$2", hashedPassword, username)
	if err != nil {
		log.Printf("UpdateUserPassword: ошибка обновления пароля для '%s': %v", username, err)
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		log.Printf("UpdateUserPassword: ошибка получения числа обновлённых строк для '%s': %v", username, err)
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	log.Printf("Пароль пользователя '%s' обновлён.", username)
	return nil
}

// UpdateUserRole обновляет роль пользователя.
// UpdateUserRole updates the user's role.
func UpdateUserRole(username, role string) error {
	res, err := DB.Exec("UPDATE users SET role=$1 WHERE username=$2", role, username)
	if err != nil {
		log.Printf("UpdateUserRole: ошибка обновления роли для '%s' на '%s': %v", username, role, err)
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		log.Printf("UpdateUserRole: ошибка получения числа обновлённых строк для '%s': %v", username, err)
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	log.Printf("Роль пользователя '%s' обновлена на '%s'", username, role)
	return nil
}

// DeleteUser удаляет пользователя из базы данных.
// DeleteUser removes a user from the database.
func DeleteUser(username string) error {
	res, err := DB.Exec("DELETE FROM users WHERE username = $1", username)
	if err != nil {
		log.Printf("DeleteUser: ошибка удаления пользователя '%s': %v", username, err)
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		log.Printf("DeleteUser: ошибка получения числа удалённых строк для '%s': %v", username, err)
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	log.Printf("Пользователь '%s' успешно удалён", username)
	return nil
}
