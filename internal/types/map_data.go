package types

// MapData is the finished artifact of a completed generation job. It is
// produced exactly once by the VALIDATE stage and embedded on the job row;
// course/lesson/dependency rows are written out only on publish.
type MapData struct {
	JobTitle     string             `json:"job_title"`
	CourseCount  int                `json:"course_count"`
	LessonCount  int                `json:"lesson_count"`
	Courses      []Course           `json:"courses"`
	Dependencies []CourseDependency `json:"dependencies"`
}
