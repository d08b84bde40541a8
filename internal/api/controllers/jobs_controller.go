package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfare/internal/models/request_models"
	"wayfare/internal/services"
	"wayfare/pkg/utils"
)

type JobsController struct {
	jobService services.ItineraryJobServiceInterface
}

func NewJobsController(jobService services.ItineraryJobServiceInterface) *JobsController {
	return &JobsController{
		jobService: jobService,
	}
}

// SubmitItinerary godoc
// @Summary Submit an itinerary planning job
// @Description Queue an asynchronous planning job and return its id immediately
// @Tags Itineraries
// @Accept json
// @Produce json
// @Param request body request_models.ItineraryRequest true "Planning request"
// @Success 202 {object} response_models.SubmitJobResponse
// @Failure 400 {object} utils.APIResponse
// @Router /itineraries [post]
func (j *JobsController) SubmitItinerary(c *gin.Context) {
	var req request_models.ItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := j.jobService.SubmitItineraryJob(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondAccepted(c, resp, "Itinerary job accepted")
}

// GetItineraryJob godoc
// @Summary Get an itinerary job by ID
// @Description Fetch job status and, once completed, the planned itinerary
// @Tags Itineraries
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response_models.ItineraryJobResponse
// @Failure 404 {object} utils.APIResponse
// @Router /itineraries/{jobId} [get]
func (j *JobsController) GetItineraryJob(c *gin.Context) {
	jobId := c.Param("jobId")
	if jobId == "" {
		utils.RespondError(c, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := j.jobService.GetJobById(c.Request.Context(), jobId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, job, "Job fetched successfully")
}
