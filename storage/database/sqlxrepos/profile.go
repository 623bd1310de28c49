package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
)

type (
	studentRow struct {
		UserID             string    `db:"user_id"`
		Name               string    `db:"name"`
		Email              string    `db:"email"`
		NISN               string    `db:"nisn"`
		NIS                string    `db:"nis"`
		BirthDate          core.Date `db:"birth_date"`
		Gender             string    `db:"gender"`
		Address            string    `db:"address"`
		Phone              string    `db:"phone"`
		Major              string    `db:"major"`
		ClassName          string    `db:"class_name"`
		GraduationYear     null.Int  `db:"graduation_year"`
		PhotoFile          string    `db:"photo_file"`
		CVFile             string    `db:"cv_file"`
		VerificationStatus string    `db:"verification_status"`
		VerificationRemark string    `db:"verification_remark"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}

	companyRow struct {
		UserID             string    `db:"user_id"`
		Email              string    `db:"email"`
		CompanyName        string    `db:"company_name"`
		BusinessField      string    `db:"business_field"`
		Address            string    `db:"address"`
		City               string    `db:"city"`
		Province           string    `db:"province"`
		Phone              string    `db:"phone"`
		Website            string    `db:"website"`
		Description        string    `db:"description"`
		LogoFile           string    `db:"logo_file"`
		PICName            string    `db:"pic_name"`
		PICPosition        string    `db:"pic_position"`
		PICPhone           string    `db:"pic_phone"`
		PICEmail           string    `db:"pic_email"`
		VerificationStatus string    `db:"verification_status"`
		VerificationRemark string    `db:"verification_remark"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}

	teacherRow struct {
		UserID    string    `db:"user_id"`
		Name      string    `db:"name"`
		Email     string    `db:"email"`
		NIP       string    `db:"nip"`
		Subject   string    `db:"subject"`
		Phone     string    `db:"phone"`
		CreatedAt null.Time `db:"created_at"`
		UpdatedAt null.Time `db:"updated_at"`
	}
)

const (
	studentSelect = `SELECT sp.user_id, u.name, COALESCE(u.email, '') AS email, sp.nisn, sp.nis, sp.birth_date, sp.gender,
	sp.address, sp.phone, sp.major, sp.class_name, sp.graduation_year, sp.photo_file, sp.cv_file,
	sp.verification_status, sp.verification_remark, sp.created_at, sp.updated_at
	FROM student_profiles sp JOIN users u ON u.id = sp.user_id`

	companySelect = `SELECT cp.user_id, COALESCE(u.email, '') AS email, cp.company_name, cp.business_field, cp.address,
	cp.city, cp.province, cp.phone, cp.website, cp.description, cp.logo_file, cp.pic_name, cp.pic_position,
	cp.pic_phone, cp.pic_email, cp.verification_status, cp.verification_remark, cp.created_at, cp.updated_at
	FROM company_profiles cp JOIN users u ON u.id = cp.user_id`

	teacherSelect = `SELECT u.id AS user_id, u.name, COALESCE(u.email, '') AS email, COALESCE(tp.nip, '') AS nip,
	COALESCE(tp.subject, '') AS subject, COALESCE(tp.phone, '') AS phone, tp.created_at, tp.updated_at
	FROM users u LEFT JOIN teacher_profiles tp ON tp.user_id = u.id`
)

type profileRepository struct {
	repository
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(exec core.DBExecutor) profile.Repository {
	return &profileRepository{repository{exec: exec}}
}

func (row studentRow) toProfile() profile.StudentProfile {
	return profile.StudentProfile{
		UserID:             row.UserID,
		Name:               row.Name,
		Email:              row.Email,
		NISN:               row.NISN,
		NIS:                row.NIS,
		BirthDate:          row.BirthDate,
		Gender:             row.Gender,
		Address:            row.Address,
		Phone:              row.Phone,
		Major:              row.Major,
		ClassName:          row.ClassName,
		GraduationYear:     row.GraduationYear.Ptr(),
		PhotoFile:          row.PhotoFile,
		CVFile:             row.CVFile,
		VerificationStatus: profile.VerificationStatus(row.VerificationStatus),
		VerificationRemark: row.VerificationRemark,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}

func (row companyRow) toProfile() profile.CompanyProfile {
	return profile.CompanyProfile{
		UserID:             row.UserID,
		Email:              row.Email,
		CompanyName:        row.CompanyName,
		BusinessField:      row.BusinessField,
		Address:            row.Address,
		City:               row.City,
		Province:           row.Province,
		Phone:              row.Phone,
		Website:            row.Website,
		Description:        row.Description,
		LogoFile:           row.LogoFile,
		PICName:            row.PICName,
		PICPosition:        row.PICPosition,
		PICPhone:           row.PICPhone,
		PICEmail:           row.PICEmail,
		VerificationStatus: profile.VerificationStatus(row.VerificationStatus),
		VerificationRemark: row.VerificationRemark,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}

func (row teacherRow) toProfile() profile.TeacherProfile {
	return profile.TeacherProfile{
		UserID:    row.UserID,
		Name:      row.Name,
		Email:     row.Email,
		NIP:       row.NIP,
		Subject:   row.Subject,
		Phone:     row.Phone,
		CreatedAt: row.CreatedAt.Time.UTC(),
		UpdatedAt: row.UpdatedAt.Time.UTC(),
	}
}

func (repo profileRepository) GetStudent(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.StudentProfile, error) {
	var row studentRow
	if err := get(ctx, repo.getExec(exec), &row, studentSelect+` WHERE sp.user_id = ?`, userID); err != nil {
		return profile.StudentProfile{}, trapNoRowsErr(err, profile.ErrStudentNotFound, "finding student profile")
	}
	return row.toProfile(), nil
}

func (repo profileRepository) SaveStudent(ctx context.Context, p profile.StudentProfile, exec ...core.DBExecutor) (profile.StudentProfile, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO student_profiles (user_id, nisn, nis, birth_date, gender, address, phone, major, class_name,
			graduation_year, photo_file, cv_file, verification_status, verification_remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			nisn = excluded.nisn, nis = excluded.nis, birth_date = excluded.birth_date, gender = excluded.gender,
			address = excluded.address, phone = excluded.phone, major = excluded.major,
			class_name = excluded.class_name, graduation_year = excluded.graduation_year,
			photo_file = excluded.photo_file, cv_file = excluded.cv_file,
			verification_status = excluded.verification_status,
			verification_remark = excluded.verification_remark, updated_at = excluded.updated_at`),
		p.UserID, p.NISN, p.NIS, p.BirthDate, p.Gender, p.Address, p.Phone, p.Major, p.ClassName,
		null.IntFromPtr(p.GraduationYear), p.PhotoFile, p.CVFile, string(p.VerificationStatus),
		p.VerificationRemark, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return profile.StudentProfile{}, profile.ErrNISNExists
		}
		return profile.StudentProfile{}, errors.Wrap(err, "saving student profile")
	}
	return repo.GetStudent(ctx, p.UserID, exe)
}

func (repo profileRepository) QueryStudents(ctx context.Context, filter profile.QueryFilter, exec ...core.DBExecutor) ([]profile.StudentProfile, error) {
	var w where
	w.search(filter.Search, "u.name", "sp.nisn", "sp.major", "sp.class_name")
	if filter.VerificationStatus != "" {
		w.add("sp.verification_status = ?", string(filter.VerificationStatus))
	}
	var rows []studentRow
	if err := sel(ctx, repo.getExec(exec), &rows, studentSelect+w.String()+` ORDER BY u.name`, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying student profiles")
	}
	profiles := make([]profile.StudentProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toProfile())
	}
	return profiles, nil
}

func (repo profileRepository) GetCompany(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.CompanyProfile, error) {
	var row companyRow
	if err := get(ctx, repo.getExec(exec), &row, companySelect+` WHERE cp.user_id = ?`, userID); err != nil {
		return profile.CompanyProfile{}, trapNoRowsErr(err, profile.ErrCompanyNotFound, "finding company profile")
	}
	return row.toProfile(), nil
}

func (repo profileRepository) SaveCompany(ctx context.Context, p profile.CompanyProfile, exec ...core.DBExecutor) (profile.CompanyProfile, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO company_profiles (user_id, company_name, business_field, address, city, province, phone, website,
			description, logo_file, pic_name, pic_position, pic_phone, pic_email, verification_status,
			verification_remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			company_name = excluded.company_name, business_field = excluded.business_field,
			address = excluded.address, city = excluded.city, province = excluded.province,
			phone = excluded.phone, website = excluded.website, description = excluded.description,
			logo_file = excluded.logo_file, pic_name = excluded.pic_name, pic_position = excluded.pic_position,
			pic_phone = excluded.pic_phone, pic_email = excluded.pic_email,
			verification_status = excluded.verification_status,
			verification_remark = excluded.verification_remark, updated_at = excluded.updated_at`),
		p.UserID, p.CompanyName, p.BusinessField, p.Address, p.City, p.Province, p.Phone, p.Website,
		p.Description, p.LogoFile, p.PICName, p.PICPosition, p.PICPhone, p.PICEmail,
		string(p.VerificationStatus), p.VerificationRemark, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return profile.CompanyProfile{}, errors.Wrap(err, "saving company profile")
	}
	return repo.GetCompany(ctx, p.UserID, exe)
}

func (repo profileRepository) QueryCompanies(ctx context.Context, filter profile.QueryFilter, exec ...core.DBExecutor) ([]profile.CompanyProfile, error) {
	var w where
	w.search(filter.Search, "cp.company_name", "cp.business_field", "cp.city")
	if filter.VerificationStatus != "" {
		w.add("cp.verification_status = ?", string(filter.VerificationStatus))
	}
	var rows []companyRow
	if err := sel(ctx, repo.getExec(exec), &rows, companySelect+w.String()+` ORDER BY cp.company_name`, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying company profiles")
	}
	profiles := make([]profile.CompanyProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toProfile())
	}
	return profiles, nil
}

func (repo profileRepository) GetTeacher(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.TeacherProfile, error) {
	var row teacherRow
	err := get(ctx, repo.getExec(exec), &row, teacherSelect+` WHERE u.role = ? AND u.id = ?`, string(core.RoleTeacher), userID)
	if err != nil {
		return profile.TeacherProfile{}, trapNoRowsErr(err, profile.ErrTeacherNotFound, "finding teacher profile")
	}
	return row.toProfile(), nil
}

func (repo profileRepository) SaveTeacher(ctx context.Context, p profile.TeacherProfile, exec ...core.DBExecutor) (profile.TeacherProfile, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO teacher_profiles (user_id, nip, subject, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			nip = excluded.nip, subject = excluded.subject, phone = excluded.phone, updated_at = excluded.updated_at`),
		p.UserID, p.NIP, p.Subject, p.Phone, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return profile.TeacherProfile{}, errors.Wrap(err, "saving teacher profile")
	}
	return repo.GetTeacher(ctx, p.UserID, exe)
}

func (repo profileRepository) QueryTeachers(ctx context.Context, filter profile.QueryFilter, exec ...core.DBExecutor) ([]profile.TeacherProfile, error) {
	var w where
	w.add("u.role = ?", string(core.RoleTeacher))
	w.search(filter.Search, "u.name", "COALESCE(tp.nip, '')", "COALESCE(tp.subject, '')")
	var rows []teacherRow
	if err := sel(ctx, repo.getExec(exec), &rows, teacherSelect+w.String()+` ORDER BY u.name`, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teacher profiles")
	}
	profiles := make([]profile.TeacherProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toProfile())
	}
	return profiles, nil
}

func verificationTable(kind profile.Kind) (string, error) {
	switch kind {
	case profile.KindStudent:
		return "student_profiles", nil
	case profile.KindCompany:
		return "company_profiles", nil
	}
	return "", errors.Errorf("unknown profile kind %q", kind)
}

func notFoundFor(kind profile.Kind) error {
	if kind == profile.KindCompany {
		return profile.ErrCompanyNotFound
	}
	return profile.ErrStudentNotFound
}

func (repo profileRepository) GetVerification(ctx context.Context, kind profile.Kind, userID string, exec ...core.DBExecutor) (profile.VerificationStatus, error) {
	table, err := verificationTable(kind)
	if err != nil {
		return "", err
	}
	var status string
	if err = get(ctx, repo.getExec(exec), &status, `SELECT verification_status FROM `+table+` WHERE user_id = ?`, userID); err != nil {
		return "", trapNoRowsErr(err, notFoundFor(kind), "reading verification status")
	}
	return profile.VerificationStatus(status), nil
}

func (repo profileRepository) SetVerification(
	ctx context.Context,
	kind profile.Kind,
	userID string,
	from, to profile.VerificationStatus,
	remark string,
	at time.Time,
	exec ...core.DBExecutor,
) (bool, error) {
	table, err := verificationTable(kind)
	if err != nil {
		return false, err
	}
	n, err := execAffected(ctx, repo.getExec(exec),
		`UPDATE `+table+` SET verification_status = ?, verification_remark = ?, updated_at = ?
		WHERE user_id = ? AND verification_status = ?`,
		string(to), remark, at.UTC(), userID, string(from))
	if err != nil {
		return false, errors.Wrap(err, "setting verification status")
	}
	return n == 1, nil
}

func (repo profileRepository) DeleteProfile(ctx context.Context, kind profile.Kind, userID string, exec ...core.DBExecutor) error {
	table, err := verificationTable(kind)
	if err != nil {
		return err
	}
	n, err := execAffected(ctx, repo.getExec(exec), `DELETE FROM `+table+` WHERE user_id = ?`, userID)
	if err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	if n == 0 {
		return notFoundFor(kind)
	}
	return nil
}

func (repo profileRepository) CountCompanies(ctx context.Context, status profile.VerificationStatus) (int, error) {
	var w where
	if status != "" {
		w.add("verification_status = ?", string(status))
	}
	var n int
	if err := get(ctx, repo.exec, &n, `SELECT COUNT(*) FROM company_profiles`+w.String(), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting companies")
	}
	return n, nil
}
